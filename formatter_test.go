package compositor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatterRender(t *testing.T) {
	f, err := NewKeyFormatter("pk", "aslr:{a}:{b}", ":")
	require.NoError(t, err)

	out, err := f.Render(AttributeSet{"a": "x", "b": "y"})
	require.NoError(t, err)
	assert.Equal(t, "aslr:x:y", out)

	assert.Equal(t, "pk", f.AttributeName())
	assert.Equal(t, []string{"a", "b"}, f.RequiredAttributes())
}

func TestFormatterRenderScalars(t *testing.T) {
	f, err := NewKeyFormatter("sk", "v:{n}:{b}", ":")
	require.NoError(t, err)

	out, err := f.Render(AttributeSet{"n": 42, "b": true})
	require.NoError(t, err)
	assert.Equal(t, "v:42:true", out)
}

func TestFormatterMissingAttribute(t *testing.T) {
	f, err := NewKeyFormatter("pk", "{a}", "")
	require.NoError(t, err)

	_, err = f.Render(AttributeSet{})
	var missing *MissingAttributeError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "a", missing.Attribute)
	assert.Equal(t, "pk", missing.Key)

	// nil reads as absent
	_, err = f.Render(AttributeSet{"a": nil})
	require.True(t, errors.As(err, &missing))
}

func TestFormatterNonScalar(t *testing.T) {
	f, err := NewKeyFormatter("pk", "{a}", "")
	require.NoError(t, err)

	_, err = f.Render(AttributeSet{"a": []string{"x"}})
	var typeErr *AttributeTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "a", typeErr.Attribute)
}

func TestFormatterRenderPrefix(t *testing.T) {
	f, err := NewKeyFormatter("sk", "item:{a}:{b}:{c}", ":")
	require.NoError(t, err)

	assert.Equal(t, "item:x:y:", f.RenderPrefix(AttributeSet{"a": "x", "b": "y"}))
	assert.Equal(t, "item:x:", f.RenderPrefix(AttributeSet{"a": "x", "c": "z"}))
	assert.Equal(t, "item:", f.RenderPrefix(AttributeSet{}))
}

func TestFormatterReverseRender(t *testing.T) {
	f, err := NewKeyFormatter("sk", "item:{a}:{b}", ":")
	require.NoError(t, err)

	values := f.ReverseRender("item:12345:abc")
	assert.Equal(t, AttributeSet{"a": "12345", "b": "abc"}, values)

	// round trip
	out, err := f.Render(values)
	require.NoError(t, err)
	assert.Equal(t, "item:12345:abc", out)
}

func TestFormatterCoverage(t *testing.T) {
	f, err := NewKeyFormatter("sk", "{a}:{b}:{c}", ":")
	require.NoError(t, err)

	covered, total := f.coverage(AttributeSet{"a": "x", "b": "y"})
	assert.Equal(t, 2, covered)
	assert.Equal(t, 3, total)

	// a gap stops coverage even when later placeholders resolve
	covered, _ = f.coverage(AttributeSet{"a": "x", "c": "z"})
	assert.Equal(t, 1, covered)
}
