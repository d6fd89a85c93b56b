package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func TestSet_React(t *testing.T) {
	set := Default()

	tests := []struct {
		name     string
		text     string
		want     string
		wantOK   bool
	}{
		{"keyword match", "サッカーが好きです", "うんうん、私も好きです。", true},
		{"keyword beats suffix", "この曲が好きです。", "うんうん、私も好きです。", true},
		{"keyword anywhere in text", "実は困っています、どうしましょう", "それは大変ですね。", true},
		{"suffix match", "昨日は雨だったんです。", "そうなんですね。", true},
		{"longer suffix rule later still reachable", "びっくりしたんだったんですよ。", "ほー、それは興味深いですね。", true},
		{"suffix mid-text does not fire", "です。と言われた", "", false},
		{"past tense suffix", "はい、そう言っていました。", "へえ、そうなんですね。", true},
		{"no match", "うーん", "", false},
		{"empty text", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got, ok := set.React(tt.text)
			is.Equal(ok, tt.wantOK)
			is.Equal(got, tt.want)
		})
	}
}

func TestSet_ReactOrderIsDeclarationOrder(t *testing.T) {
	is := is.New(t)
	set := &Set{
		Keywords: []Rule{
			{Match: "猫", Reaction: "first"},
			{Match: "猫が", Reaction: "second"},
		},
	}
	got, ok := set.React("猫がいます")
	is.True(ok)
	is.Equal(got, "first") // first declared rule wins
}

func TestLoad(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "rules.json")
	content := `{
		"keywords": [{"match": "眠い", "reaction": "お疲れさまです。"}],
		"suffixes": [{"match": "かな。", "reaction": "どうでしょうね。"}]
	}`
	is.NoErr(os.WriteFile(path, []byte(content), 0644))

	set, err := Load(path)
	is.NoErr(err)

	got, ok := set.React("眠いです")
	is.True(ok)
	is.Equal(got, "お疲れさまです。")

	// A file without fallback phrases inherits the built-in ones.
	is.Equal(set.Fallback, Default().Fallback)
}

func TestLoad_Missing(t *testing.T) {
	is := is.New(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	is.True(err != nil)
}

func TestLoad_Malformed(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "rules.json")
	is.NoErr(os.WriteFile(path, []byte("{not json"), 0644))
	_, err := Load(path)
	is.True(err != nil)
}
