package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxID(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"individual", "GALJ850101AB1", true},
		{"company", "ABC010203XY9", true},
		{"company with placeholder", "-ABC010203XY9", true},
		{"ampersand", "A&C010203XY9", true},
		{"invalid month", "GALJ851301AB1", false},
		{"too short", "GAL850101", false},
		{"lowercase", "galj850101ab1", false},
		{"blank", "   ", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TaxID(tt.value))
		})
	}
}

func TestNationalID(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"valid male", "GALJ850101HDFRPN09", true},
		{"valid female", "LOMA900215MJCPRN01", true},
		{"bad sex marker", "GALJ850101ZDFRPN09", false},
		{"bad state", "GALJ850101HQQRPN09", false},
		{"impossible date", "GALJ850231HDFRPN09", false},
		{"wrong length", "GALJ850101HDFRPN0", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NationalID(tt.value))
		})
	}
}

func TestCaseNumber(t *testing.T) {
	assert.True(t, CaseNumber("A/AS1-2505-088637-PHM"))
	assert.True(t, CaseNumber("B/JUD-2024-123456-FGR"))
	assert.False(t, CaseNumber("A-AS1-2505-088637-PHM"))
	assert.False(t, CaseNumber("A/AS1 2505 088637 PHM"))
	assert.False(t, CaseNumber(""))
}

func TestRoutingCode(t *testing.T) {
	assert.True(t, RoutingCode("002010077777777771"))
	assert.True(t, RoutingCode("012180001234567891"))
	assert.False(t, RoutingCode("00201007777777777"))
	assert.False(t, RoutingCode("0020100777777777712"))
	assert.False(t, RoutingCode("00201007777777777A"))

	assert.True(t, RoutingCodeChecksum("002010077777777771"))
	assert.False(t, RoutingCodeChecksum("012180001234567891"))
	assert.False(t, RoutingCodeChecksum("not-a-code"))
}

func TestDate(t *testing.T) {
	assert.True(t, Date("20250514"))
	assert.True(t, Date("20240229"))
	assert.False(t, Date("20230229"))
	assert.False(t, Date("20251301"))
	assert.False(t, Date("2025-05-14"))
	assert.False(t, Date("2025051"))
}

func TestAmount(t *testing.T) {
	assert.True(t, Amount("0"))
	assert.True(t, Amount("150000"))
	assert.False(t, Amount("150,000"))
	assert.False(t, Amount("150000.50"))
	assert.False(t, Amount("-10"))
	assert.False(t, Amount("1234567890123456"))
	assert.False(t, Amount(""))
}

func TestText(t *testing.T) {
	assert.True(t, Text("JUZGADO PRIMERO", 50))
	assert.False(t, Text("   ", 50))
	assert.False(t, Text("ABCDEF", 5))
	assert.True(t, Text("ÁÉÍÓÚ", 5))
	assert.True(t, Text("short", 0))
}

func TestCheck(t *testing.T) {
	value := "A/AS1-2505-088637-PHM"
	blank := "  "

	assert.True(t, Check(KindCaseNumber, &value, 0))
	assert.False(t, Check(KindCaseNumber, nil, 0))
	assert.False(t, Check(KindText, &blank, 0))
	assert.True(t, Check(Kind("unregistered"), &value, 0))
	assert.False(t, Check(KindAmount, &value, 0))
}

func TestTextPatterns(t *testing.T) {
	text := "Cuenta CLABE 002010077777777771, expediente A/AS1-2505-088637-PHM."

	m := RoutingCodePattern.FindStringSubmatch(text)
	if assert.Len(t, m, 2) {
		assert.Equal(t, "002010077777777771", m[1])
	}
	assert.Equal(t, "A/AS1-2505-088637-PHM", CaseNumberPattern.FindString(text))
	assert.Nil(t, RoutingCodePattern.FindStringSubmatch("cuenta 0020100777777777712"))
}

func TestBankName(t *testing.T) {
	name, ok := BankName("002010077777777771")
	assert.True(t, ok)
	assert.Equal(t, "BANAMEX", name)

	_, ok = BankName("999010077777777771")
	assert.False(t, ok)
	_, ok = BankName("0020")
	assert.False(t, ok)

	assert.True(t, RoutingCodeKnown("002010077777777771"))
	assert.False(t, RoutingCodeKnown("002010077777777772"), "bad checksum")
}
