package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beneficiary/internal/profile/domain/credential"
	id "beneficiary/pkg/domain"
	"beneficiary/pkg/jsonvalue"
)

type stubEncrypter struct {
	err error
}

func (s stubEncrypter) Encrypt(plaintext string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "enc(" + plaintext + ")", nil
}

func input(t *testing.T, field, content string, paths map[string]string) Input {
	t.Helper()
	v, err := jsonvalue.Parse([]byte(content))
	require.NoError(t, err)
	c, err := credential.New(id.NewDocumentID(), "aadhaar", credential.VCTypeDigilocker, credential.FormatJSON, v)
	require.NoError(t, err)
	return Input{Credential: c, Field: field, Paths: paths}
}

func TestDecodeRoman(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"I", 1, true},
		{"IV", 4, true},
		{"IX", 9, true},
		{"XII", 12, true},
		{"XIV", 14, true},
		{"MCMXCIV", 1994, true},
		{"", 0, false},
		{"12", 0, false},
		{"xii", 0, false},
		{"XIIA", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := DecodeRoman(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClass(t *testing.T) {
	paths := map[string]string{FieldClass: "cs.class"}

	v, err := Class(input(t, FieldClass, `{"cs":{"class":"XII"}}`, paths))
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.Int(12), v)

	v, err = Class(input(t, FieldClass, `{"cs":{"class":"12th"}}`, paths))
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.String("12th"), v, "non-roman strings are returned unchanged")

	v, err = Class(input(t, FieldClass, `{"cs":{"class":10}}`, paths))
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.Number("10"), v)

	v, err = Class(input(t, FieldClass, `{"cs":{}}`, paths))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"yyyy-MM-dd", "2001-07-15", "2001-07-15", true},
		{"dd-MM-yyyy", "15-07-2001", "2001-07-15", true},
		{"MM-dd-yyyy", "07-15-2001", "2001-07-15", true},
		{"yyyy/MM/dd", "2001/07/15", "2001-07-15", true},
		{"dd/MM/yyyy", "15/07/2001", "2001-07-15", true},
		{"MM/dd/yyyy", "07/15/2001", "2001-07-15", true},
		{"day-first wins when ambiguous", "05-06-2024", "2024-06-05", true},
		{"single digit parts", "5/6/2024", "2024-06-05", true},
		{"invalid calendar date", "31-02-2001", "", false},
		{"free text", "fifteenth of July", "", false},
		{"timestamp", "2001-07-15T00:00:00Z", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateOfBirth(t *testing.T) {
	paths := map[string]string{FieldDOB: "dob"}

	v, err := DateOfBirth(input(t, FieldDOB, `{"dob":"15/07/2001"}`, paths))
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.String("2001-07-15"), v)

	v, err = DateOfBirth(input(t, FieldDOB, `{"dob":"unknown"}`, paths))
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = DateOfBirth(input(t, FieldDOB, `{"dob":20010715}`, paths))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSplitName(t *testing.T) {
	assert.Equal(t, NameParts{First: "A", Middle: "B", Last: "C"}, SplitName("A B C"))
	assert.Equal(t, NameParts{First: "A", Last: "B"}, SplitName("A B"))
	assert.Equal(t, NameParts{First: "A"}, SplitName("A"))
	assert.Equal(t, NameParts{}, SplitName("   "))
	assert.Equal(t, NameParts{First: "A", Last: "D"}, SplitName("A B C D"))
	assert.Equal(t, NameParts{First: "A", Middle: "B", Last: "C"}, SplitName("  A\tB  C "))
}

func TestName(t *testing.T) {
	paths := map[string]string{PathName: "subject.name"}
	doc := `{"subject":{"name":"Ravi Kumar Sharma"}}`

	for field, want := range map[string]jsonvalue.Value{
		FieldFirstName:  jsonvalue.String("Ravi"),
		FieldMiddleName: jsonvalue.String("Kumar"),
		FieldLastName:   jsonvalue.String("Sharma"),
		FieldFatherName: jsonvalue.String("Kumar"),
	} {
		t.Run(field, func(t *testing.T) {
			v, err := Name(input(t, field, doc, paths))
			require.NoError(t, err)
			assert.Equal(t, want, v)
		})
	}

	t.Run("two tokens leave middle empty", func(t *testing.T) {
		v, err := Name(input(t, FieldMiddleName, `{"subject":{"name":"Ravi Sharma"}}`, paths))
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("no name path configured", func(t *testing.T) {
		v, err := Name(input(t, FieldFirstName, doc, map[string]string{}))
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestNormalizeGender(t *testing.T) {
	for raw, want := range map[string]string{"M": "male", "Male": "male", "F": "female", "Female": "female"} {
		got, ok := NormalizeGender(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	for _, raw := range []string{"male", "MALE", "T", "", "Other"} {
		_, ok := NormalizeGender(raw)
		assert.False(t, ok, raw)
	}
}

func TestGender(t *testing.T) {
	paths := map[string]string{FieldGender: "g"}

	v, err := Gender(input(t, FieldGender, `{"g":"F"}`, paths))
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.String("female"), v)

	v, err = Gender(input(t, FieldGender, `{"g":"X"}`, paths))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestIncome(t *testing.T) {
	paths := map[string]string{FieldAnnualIncome: "income"}
	strict := Income(IncomeStrict)
	lenient := Income(IncomeLenient)

	t.Run("indian digit grouping", func(t *testing.T) {
		v, err := strict(input(t, FieldAnnualIncome, `{"income":"1,20,000"}`, paths))
		require.NoError(t, err)
		assert.Equal(t, jsonvalue.Number("120000"), v)
	})

	t.Run("apostrophes and spaces", func(t *testing.T) {
		v, err := strict(input(t, FieldAnnualIncome, `{"income":"1'20 000.50"}`, paths))
		require.NoError(t, err)
		assert.Equal(t, jsonvalue.Number("120000.5"), v)
	})

	t.Run("numeric passes through", func(t *testing.T) {
		v, err := strict(input(t, FieldAnnualIncome, `{"income":0}`, paths))
		require.NoError(t, err)
		assert.Equal(t, jsonvalue.Number("0"), v)
	})

	t.Run("negative numeric is rejected", func(t *testing.T) {
		v, err := strict(input(t, FieldAnnualIncome, `{"income":-500}`, paths))
		assert.ErrorIs(t, err, ErrRejected)
		assert.Nil(t, v)
	})

	t.Run("strict rejects text", func(t *testing.T) {
		v, err := strict(input(t, FieldAnnualIncome, `{"income":"below 1 lakh"}`, paths))
		assert.ErrorIs(t, err, ErrRejected)
		assert.Nil(t, v)
	})

	t.Run("lenient passes text through sanitized", func(t *testing.T) {
		v, err := lenient(input(t, FieldAnnualIncome, `{"income":"below 1,00,000"}`, paths))
		require.NoError(t, err)
		assert.Equal(t, jsonvalue.String("below100000"), v)
	})

	t.Run("lenient rejects negative strings", func(t *testing.T) {
		v, err := lenient(input(t, FieldAnnualIncome, `{"income":"-1,000"}`, paths))
		assert.ErrorIs(t, err, ErrRejected)
		assert.Nil(t, v)
	})

	t.Run("empty after sanitizing", func(t *testing.T) {
		v, err := strict(input(t, FieldAnnualIncome, `{"income":" , "}`, paths))
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestParseIncomePolicy(t *testing.T) {
	p, err := ParseIncomePolicy("")
	require.NoError(t, err)
	assert.Equal(t, IncomeStrict, p)

	p, err = ParseIncomePolicy("Lenient")
	require.NoError(t, err)
	assert.Equal(t, IncomeLenient, p)

	_, err = ParseIncomePolicy("loose")
	assert.Error(t, err)
}

func TestMarks(t *testing.T) {
	paths := map[string]string{FieldPreviousYearMarks: "pct"}
	tests := []struct {
		doc  string
		want jsonvalue.Value
	}{
		{`{"pct":"85.5"}`, jsonvalue.String("85.50")},
		{`{"pct":"72%"}`, jsonvalue.String("72.00")},
		{`{"pct":"85 marks"}`, jsonvalue.String("85.00")},
		{`{"pct":" 64.5 / 100"}`, jsonvalue.String("64.50")},
		{`{"pct":".5"}`, jsonvalue.String("0.50")},
		{`{"pct":91.237}`, jsonvalue.String("91.24")},
		{`{"pct":""}`, nil},
		{`{"pct":"n/a"}`, nil},
		{`{"pct":"marks: 85"}`, nil},
		{`{}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			v, err := Marks(input(t, FieldPreviousYearMarks, tt.doc, paths))
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestSensitive(t *testing.T) {
	paths := map[string]string{FieldAadhaar: "uid"}

	v, err := Sensitive(stubEncrypter{})(input(t, FieldAadhaar, `{"uid":"123412341234"}`, paths))
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.String("enc(123412341234)"), v)

	v, err = Sensitive(stubEncrypter{})(input(t, FieldAadhaar, `{"uid":123412341234}`, paths))
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.String("enc(123412341234)"), v, "numeric identifiers keep their digits")

	cause := errors.New("kms down")
	_, err = Sensitive(stubEncrypter{err: cause})(input(t, FieldAadhaar, `{"uid":"1"}`, paths))
	assert.ErrorIs(t, err, cause)

	v, err = Sensitive(nil)(input(t, FieldAadhaar, `{}`, paths))
	require.NoError(t, err, "missing value never reaches the cipher")
	assert.Nil(t, v)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(stubEncrypter{})
	paths := map[string]string{
		PathName:     "n",
		FieldGender:  "g",
		"caste":      "c",
		"verified":   "v",
		"addressObj": "addr",
	}
	doc := `{"n":"Meera Nair","g":"Female","c":"OBC","v":true,"addr":{"line":"x"}}`

	v, err := reg.Apply(input(t, FieldLastName, doc, paths))
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.String("Nair"), v)

	v, err = reg.Apply(input(t, FieldGender, doc, paths))
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.String("female"), v)

	v, err = reg.Apply(input(t, "caste", doc, paths))
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.String("OBC"), v, "unknown fields fall back to path resolution")

	v, err = reg.Apply(input(t, "verified", doc, paths))
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.String("true"), v)

	v, err = reg.Apply(input(t, "addressObj", doc, paths))
	require.NoError(t, err)
	assert.Nil(t, v, "composite values are not profile values")

	reg.Register("caste", func(Input) (jsonvalue.Value, error) { return jsonvalue.String("override"), nil })
	v, _ = reg.Apply(input(t, "caste", doc, paths))
	assert.Equal(t, jsonvalue.String("override"), v)
}

func TestRegistryIncomePolicyOption(t *testing.T) {
	paths := map[string]string{FieldAnnualIncome: "i"}
	doc := `{"i":"approx 5000"}`

	_, err := NewRegistry(stubEncrypter{}).Apply(input(t, FieldAnnualIncome, doc, paths))
	assert.ErrorIs(t, err, ErrRejected, "strict is the default")

	v, err := NewRegistry(stubEncrypter{}, WithIncomePolicy(IncomeLenient)).Apply(input(t, FieldAnnualIncome, doc, paths))
	require.NoError(t, err)
	assert.Equal(t, jsonvalue.String("approx5000"), v)
}
