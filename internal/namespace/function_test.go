package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestSignature_Format(t *testing.T) {
	three := cty.NumberIntVal(3)
	empty := cty.StringVal("")
	null := cty.NullVal(cty.String)

	testCases := []struct {
		name string
		sig  Signature
		want string
	}{
		{
			name: "no params",
			sig:  Signature{Returns: cty.String},
			want: "get_runtime_path() -> string",
		},
		{
			name: "defaults",
			sig: Signature{
				Params: []Param{
					{Name: "path", Type: cty.String},
					{Name: "level", Type: cty.Number, Default: &three},
					{Name: "ext", Type: cty.String, Default: &empty},
				},
				Returns: cty.List(cty.String),
			},
			want: `get_runtime_path(path string, level number = 3, ext string = "") -> list(string)`,
		},
		{
			name: "null default and any",
			sig: Signature{
				Params: []Param{{Name: "cwd", Type: cty.String, Default: &null}},
			},
			want: "get_runtime_path(cwd string = null) -> any",
		},
		{
			name: "variadic and options",
			sig: Signature{
				Params:   []Param{{Name: "path", Type: cty.String}},
				Variadic: &Param{Name: "parts", Type: cty.String},
				Options:  &Param{Name: "extra"},
				Returns:  cty.Map(cty.String),
			},
			want: "get_runtime_path(path string, *parts string, **extra any) -> map(string)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.sig.Format("get_runtime_path"))
		})
	}
}

func TestSignature_NormalizeConvertsDefaults(t *testing.T) {
	def := cty.StringVal("10")
	sig, err := Signature{Params: []Param{{Name: "n", Type: cty.Number, Default: &def}}}.normalize()
	require.NoError(t, err)

	require.NotNil(t, sig.Params[0].Default)
	assert.True(t, sig.Params[0].Default.RawEquals(cty.NumberIntVal(10)))
	assert.Equal(t, cty.DynamicPseudoType, sig.Returns)
	assert.False(t, sig.Params[0].Required())
}

func TestSignature_NormalizeRejectsBadNames(t *testing.T) {
	_, err := Signature{Params: []Param{{Name: "1bad"}}}.normalize()
	require.ErrorContains(t, err, "not a valid identifier")

	_, err = Signature{Options: &Param{Name: ""}}.normalize()
	require.ErrorContains(t, err, "options parameter")
}
