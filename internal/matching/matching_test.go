package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldAccents(t *testing.T) {
	assert.Equal(t, "Evora Sao Joao", FoldAccents("Évora São João"))
	assert.Equal(t, "plain", FoldAccents("plain"))
	assert.Equal(t, "Oster Hornum", FoldAccents("Øster Hornum"))
	assert.Equal(t, "Lodz Solar", FoldAccents("Łódź Solar"))
	assert.Equal(t, "AEroskobing Strasse", FoldAccents("Ærøskøbing Straße"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Divor PV1", "divor pv1"},
		{"Divor-PV1", "divor pv1"},
		{"Divor__PV1", "divor pv1"},
		{"  Évora   Solar ", "evora solar"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestAliasVariants(t *testing.T) {
	variants := AliasVariants("Divor PV 1")

	assert.Contains(t, variants, "Divor PV 1")
	assert.Contains(t, variants, "Divor PV1")
	assert.Contains(t, variants, "DivorPV1")
	assert.NotContains(t, variants, "")

	underscored := AliasVariants("Alpha_Beta-2")
	assert.Contains(t, underscored, "Alpha Beta-2")
	assert.Contains(t, underscored, "Alpha-Beta-2")
	assert.Contains(t, underscored, "Alpha_Beta 2")
	assert.Contains(t, underscored, "Alpha_Beta_2")
	assert.Contains(t, underscored, "AlphaBeta2")

	assert.Nil(t, AliasVariants("   "))
}

func TestFold_SourceSpan(t *testing.T) {
	f := Fold("Update: Évora PV done")
	assert.Equal(t, "update: evora pv done", f.Text)

	start, end, raw := f.SourceSpan(8, 16)
	assert.Equal(t, 8, start)
	assert.Equal(t, "Évora PV", raw)
	assert.Equal(t, 17, end)
}

func TestRatio(t *testing.T) {
	assert.Equal(t, float64(100), Ratio("abc", "abc"))
	assert.InDelta(t, 94.12, Ratio("divorpv1", "divor pv1"), 0.01)
	assert.Equal(t, float64(0), Ratio("abc", "xyz"))
}

func TestTokenSetRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "divor pv1", "divor pv1", 100},
		{"subset", "divor pv1", "divor pv1 extension", 100},
		{"reordered", "pv1 divor", "divor pv1", 100},
		{"sibling project", "divor pv1", "divor pv2", 71.43},
		{"empty", "", "divor", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TokenSetRatio(tt.a, tt.b), 0.01)
		})
	}
}

func TestMatcher_Resolve(t *testing.T) {
	m := NewMatcher([]string{"Divor PV1", "Divor PV2", "Tordesillas A2"})
	require.Equal(t, 3, m.Len())

	for _, q := range []string{"Divor PV1", "divor-pv1", "DIVOR_PV1", "DivorPV1"} {
		t.Run(q, func(t *testing.T) {
			got, ok := m.Resolve(q, AliasProjectThreshold)
			require.True(t, ok)
			assert.Equal(t, "Divor PV1", got.Choice)
		})
	}

	_, ok := m.Resolve("Completely Different", AliasProjectThreshold)
	assert.False(t, ok)

	_, ok = NewMatcher(nil).Best("anything")
	assert.False(t, ok)
}

func TestAliasIndex_FindAll(t *testing.T) {
	idx, err := NewAliasIndex([]string{"Divor PV1", "Tordesillas A2"}, 2)
	require.NoError(t, err)
	assert.Greater(t, idx.Batches(), 1)

	text := Fold("Divor-PV1 is fine; tordesillas_a2 slipped. DivorPV1 again. xDivor PV1x no.").Text
	hits := idx.FindAll(text)

	var found []string
	for _, h := range hits {
		found = append(found, text[h.Start:h.End])
	}
	assert.Contains(t, found, "divor-pv1")
	assert.Contains(t, found, "tordesillas_a2")
	assert.Contains(t, found, "divorpv1")
	assert.NotContains(t, found, "xdivor pv1x")
}

func TestAliasIndex_UnicodeWordEdges(t *testing.T) {
	idx, err := NewAliasIndex([]string{"Øster Hornum", "Ветер Парк", "Divor PV1", "Divor PV2"}, 0)
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"transliterated letters", "update on øster hornum: permits", []string{"oster hornum"}},
		{"at text edges", "oster hornum", []string{"oster hornum"}},
		{"non latin alias", "статус: ветер парк готов", []string{"ветер парк"}},
		{"non latin letters are word characters", "жветер паркж", nil},
		{"single separator between hits", "divor pv1 divor pv2", []string{"divor pv1", "divor pv2"}},
		{"digits continue a word", "divor pv12", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := Fold(tt.text).Text
			var found []string
			for _, h := range idx.FindAll(text) {
				found = append(found, text[h.Start:h.End])
			}
			assert.ElementsMatch(t, tt.want, found)
		})
	}
}

func TestAliasIndex_DropsShortAliases(t *testing.T) {
	idx, err := NewAliasIndex([]string{"AB", "Q7"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Aliases())
	assert.Empty(t, idx.FindAll("ab q7"))
}
