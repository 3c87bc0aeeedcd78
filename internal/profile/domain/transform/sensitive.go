package transform

import (
	"errors"
	"fmt"

	"beneficiary/pkg/jsonvalue"
)

var errNoEncrypter = errors.New("no encrypter configured for sensitive field")

// Sensitive returns a transformer that stores the resolved value encrypted.
func Sensitive(enc Encrypter) Func {
	return func(in Input) (jsonvalue.Value, error) {
		raw, ok := jsonvalue.Text(in.resolve(in.Field))
		if !ok || raw == "" {
			return nil, nil
		}
		if enc == nil {
			return nil, errNoEncrypter
		}
		ct, err := enc.Encrypt(raw)
		if err != nil {
			return nil, fmt.Errorf("encrypt %s: %w", in.Field, err)
		}
		return jsonvalue.String(ct), nil
	}
}
