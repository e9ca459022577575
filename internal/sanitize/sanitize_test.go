package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  *string
		want *string
	}{
		{"nil", nil, nil},
		{"empty", strPtr(""), nil},
		{"whitespace only", strPtr(" \t \n "), nil},
		{"trim", strPtr("  JUAN PEREZ  "), strPtr("JUAN PEREZ")},
		{"encoded nbsp", strPtr("JUAN&nbsp;PEREZ"), strPtr("JUAN PEREZ")},
		{"unicode nbsp", strPtr("JUAN\u00a0PEREZ"), strPtr("JUAN PEREZ")},
		{"line breaks", strPtr("JUZGADO\r\nPRIMERO\nCIVIL"), strPtr("JUZGADO PRIMERO CIVIL")},
		{"escaped line break", strPtr(`JUZGADO\nPRIMERO`), strPtr("JUZGADO PRIMERO")},
		{"html break", strPtr("JUZGADO<br/>PRIMERO"), strPtr("JUZGADO PRIMERO")},
		{"markup", strPtr("<span class=\"x\">150000</span>"), strPtr("150000")},
		{"repeated whitespace", strPtr("A/AS1-2505   088637"), strPtr("A/AS1-2505 088637")},
		{"placeholder spanish", strPtr("No Disponible"), nil},
		{"placeholder english", strPtr("  not   available "), nil},
		{"placeholder see above", strPtr("see text above"), nil},
		{"placeholder dash", strPtr("--"), nil},
		{"placeholder inside markup", strPtr("<b>N/A</b>"), nil},
		{"value containing placeholder word", strPtr("PENDIENTE DE PAGO"), strPtr("PENDIENTE DE PAGO")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.raw)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"  JUAN&nbsp;&nbsp;PEREZ\r\n",
		"<p>A/AS1-2505-088637-PHM</p>",
		"GARCÍA   LÓPEZ\tJUAN",
		"150000",
	}

	for _, in := range inputs {
		once := Clean(strPtr(in))
		require.NotNil(t, once, in)
		twice := Clean(once)
		require.NotNil(t, twice, in)
		assert.Equal(t, *once, *twice, in)
	}
}

func TestCustomPlaceholders(t *testing.T) {
	s := New([]string{"SIN INFORMACION"})

	assert.Nil(t, s.Clean(strPtr("sin   informacion")))
	assert.True(t, s.IsPlaceholder(" Sin Informacion "))

	// the default list is replaced, not extended
	got := s.Clean(strPtr("N/A"))
	require.NotNil(t, got)
	assert.Equal(t, "N/A", *got)
}

func TestCleanString(t *testing.T) {
	v, ok := CleanString(" 20250514 ")
	assert.True(t, ok)
	assert.Equal(t, "20250514", v)

	_, ok = CleanString("no aplica")
	assert.False(t, ok)
}
