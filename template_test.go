package compositor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate(t *testing.T) {
	tmpl, err := ParseTemplate("aslr:{a}:{b}")
	require.NoError(t, err)
	assert.Equal(t, "aslr:{a}:{b}", tmpl.Raw())
	assert.Equal(t, []string{"a", "b"}, tmpl.Fields())
	assert.False(t, tmpl.IsConstant())
}

func TestParseTemplateConstant(t *testing.T) {
	tmpl, err := ParseTemplate("someItemType")
	require.NoError(t, err)
	assert.True(t, tmpl.IsConstant())
	assert.Empty(t, tmpl.Fields())
}

func TestParseTemplateEscapedBraces(t *testing.T) {
	tmpl, err := ParseTemplate("lit{{x}}:{a}")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, tmpl.Fields())

	f, err := NewKeyFormatter("pk", "lit{{x}}:{a}", ":")
	require.NoError(t, err)
	out, err := f.Render(AttributeSet{"a": "v"})
	require.NoError(t, err)
	assert.Equal(t, "lit{x}:v", out)
}

func TestParseTemplateErrors(t *testing.T) {
	cases := []struct {
		format string
		reason string
	}{
		{"{a", "unterminated placeholder"},
		{"{}", "empty placeholder name"},
		{"{a}{a}", "duplicate placeholder"},
		{"{9a}", "invalid placeholder name"},
		{"{a-b}", "invalid placeholder name"},
		{"a}b", "unmatched closing brace"},
	}
	for _, tc := range cases {
		_, err := ParseTemplate(tc.format)
		var syntaxErr *TemplateSyntaxError
		require.True(t, errors.As(err, &syntaxErr), "format %q", tc.format)
		assert.Contains(t, syntaxErr.Reason, tc.reason, "format %q", tc.format)
		assert.Equal(t, tc.format, syntaxErr.Format)
	}
}

func TestParseTemplateCached(t *testing.T) {
	a, err := ParseTemplate("cache:{x}")
	require.NoError(t, err)
	b, err := ParseTemplate("cache:{x}")
	require.NoError(t, err)
	assert.Same(t, a, b)
}
