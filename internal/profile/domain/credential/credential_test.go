package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "beneficiary/pkg/domain"
	"beneficiary/pkg/jsonvalue"
)

func mustParse(t *testing.T, s string) jsonvalue.Value {
	t.Helper()
	v, err := jsonvalue.Parse([]byte(s))
	require.NoError(t, err)
	return v
}

func TestResolve(t *testing.T) {
	doc := mustParse(t, `{
		"credentialSubject": {
			"name": "Asha Devi Kumari",
			"income": 0,
			"nickname": null,
			"addresses": [{"state": "Kerala"}, {"state": "Goa"}]
		}
	}`)

	tests := []struct {
		name string
		path string
		want jsonvalue.Value
	}{
		{"nested string", "credentialSubject.name", jsonvalue.String("Asha Devi Kumari")},
		{"zero is returned", "credentialSubject.income", jsonvalue.Number("0")},
		{"array index", "credentialSubject.addresses.1.state", jsonvalue.String("Goa")},
		{"explicit null", "credentialSubject.nickname", nil},
		{"missing leaf", "credentialSubject.caste", nil},
		{"missing branch", "proof.type", nil},
		{"step into scalar", "credentialSubject.name.first", nil},
		{"index out of range", "credentialSubject.addresses.5.state", nil},
		{"non-numeric index", "credentialSubject.addresses.first", nil},
		{"empty path", "", nil},
		{"empty segment", "credentialSubject..name", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(doc, tt.path))
		})
	}
}

func TestResolveNilDocument(t *testing.T) {
	assert.Nil(t, Resolve(nil, "a.b"))
}

func TestNew(t *testing.T) {
	content := mustParse(t, `{"a":1}`)
	docID := id.NewDocumentID()

	t.Run("valid", func(t *testing.T) {
		c, err := New(docID, "aadhaar", VCTypeDigilocker, FormatJSON, content)
		require.NoError(t, err)
		assert.Equal(t, "aadhaar", c.DocType())
		assert.Equal(t, docID, c.DocumentID())
		assert.True(t, c.Matches(VCTypeDigilocker, FormatJSON, "aadhaar"))
		assert.False(t, c.Matches(VCTypeW3C, FormatJSON, "aadhaar"))
		assert.Equal(t, jsonvalue.Number("1"), c.Resolve("a"))
	})

	t.Run("rejects missing doc type", func(t *testing.T) {
		_, err := New(docID, " ", VCTypeW3C, FormatJSON, content)
		assert.Error(t, err)
	})

	t.Run("rejects unknown vc type", func(t *testing.T) {
		_, err := New(docID, "aadhaar", VCType("paper"), FormatJSON, content)
		assert.Error(t, err)
	})

	t.Run("rejects non-json format", func(t *testing.T) {
		_, err := New(docID, "aadhaar", VCTypeW3C, Format("xml"), content)
		assert.Error(t, err)
	})

	t.Run("rejects null content", func(t *testing.T) {
		_, err := New(docID, "aadhaar", VCTypeW3C, FormatJSON, nil)
		assert.Error(t, err)
	})
}

func TestVCTypeFromSource(t *testing.T) {
	assert.Equal(t, VCTypeDigilocker, VCTypeFromSource("Digilocker"))
	assert.Equal(t, VCTypeDigilocker, VCTypeFromSource("digilocker "))
	assert.Equal(t, VCTypeW3C, VCTypeFromSource("e-wallet"))
	assert.Equal(t, VCTypeW3C, VCTypeFromSource(""))
}

func TestFirstOfType(t *testing.T) {
	content := mustParse(t, `{}`)
	a, _ := New(id.NewDocumentID(), "marksheet", VCTypeW3C, FormatJSON, content)
	b, _ := New(id.NewDocumentID(), "aadhaar", VCTypeW3C, FormatJSON, content)
	c, _ := New(id.NewDocumentID(), "aadhaar", VCTypeDigilocker, FormatJSON, content)

	assert.Same(t, b, FirstOfType([]*Credential{a, b, c}, "aadhaar"))
	assert.Nil(t, FirstOfType([]*Credential{a}, "aadhaar"))
}
