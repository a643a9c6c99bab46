package fillers

import "testing"

func TestStrip(t *testing.T) {
	t.Run("Polish", func(t *testing.T) {
		cases := []struct{ in, want string }{
			{"yyy no więc jakby to jest ważne", "to jest ważne"},
			{"eee znaczy generalnie chciałem powiedzieć", "chciałem powiedzieć"},
			{"yyyyyy to długie wahanie", "to długie wahanie"},
			{"kurczę nie wiem", "nie wiem"},
			{"kurczę, nie wiem", ", nie wiem"},
			{"nie wiem kurczę", "nie wiem"},
			{"kurczęta na podwórku", "kurczęta na podwórku"},
			{"czysty tekst bez wypełniaczy", "czysty tekst bez wypełniaczy"},
		}
		for _, c := range cases {
			if out := Strip(c.in, "pl"); out != c.want {
				t.Errorf("Strip(%q) = %q, want %q", c.in, out, c.want)
			}
		}
	})

	t.Run("English", func(t *testing.T) {
		cases := []struct{ in, want string }{
			{"um like you know basically its fine", "its fine"},
			{"uh i mean sort of actually right", ""},
			{"ummmm hello", "hello"},
			{"hello world", "hello world"},
		}
		for _, c := range cases {
			if out := Strip(c.in, "en"); out != c.want {
				t.Errorf("Strip(%q) = %q, want %q", c.in, out, c.want)
			}
		}
	})

	t.Run("AllFillersCollapseToEmpty", func(t *testing.T) {
		if out := Strip("um like you know", "en"); out != "" {
			t.Errorf("Strip = %q, want empty", out)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		once := Strip("um like you know basically its fine", "en")
		if twice := Strip(once, "en"); twice != once {
			t.Errorf("Second Strip changed output: %q -> %q", once, twice)
		}
	})

	t.Run("UnknownLanguageOnlyNormalizesSpace", func(t *testing.T) {
		if out := Strip("  um   hello  ", "de"); out != "um hello" {
			t.Errorf("Strip = %q, want %q", out, "um hello")
		}
	})

	t.Run("DoesNotEatWordsContainingFillers", func(t *testing.T) {
		// "liked" contains "like" but is not a filler
		if out := Strip("she liked it", "en"); out != "she liked it" {
			t.Errorf("Strip = %q", out)
		}
	})
}
