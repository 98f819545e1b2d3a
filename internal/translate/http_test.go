package translate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/keshon/server-babel/internal/translate"
)

func TestGoogle_Translate(t *testing.T) {
	t.Parallel()

	var query atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query.Store(r.URL.Query())
		assert.Equal(t, "Mozilla/5.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[[["Bonjour. ","Hello. ",null,null,10],["Ça va ?","How are you?",null,null,10]],null,"en",null,null,null,1]`))
	}))
	t.Cleanup(srv.Close)

	g := translate.NewGoogle(zerolog.Nop(), translate.WithGoogleURL(srv.URL))
	require.NoError(t, g.InitializeSupportedLanguages(context.Background()))

	tag, ok := translate.FlagLocale("🇫🇷")
	require.True(t, ok)
	res, err := g.Translate(context.Background(), tag, "Hello. How are you?", language.Und)
	require.NoError(t, err)

	assert.Equal(t, "Bonjour. Ça va ?", res.Text)
	assert.Equal(t, "en", res.Source)
	assert.Equal(t, "fr", res.Target)
	assert.Equal(t, "Google Translate", res.Provider)

	q := query.Load().(url.Values)
	assert.Equal(t, []string{"gtx"}, q["client"])
	assert.Equal(t, []string{"auto"}, q["sl"])
	assert.Equal(t, []string{"fr"}, q["tl"])
	assert.Equal(t, []string{"Hello. How are you?"}, q["q"])
}

func TestGoogle_Unsupported(t *testing.T) {
	t.Parallel()

	g := translate.NewGoogle(zerolog.Nop(), translate.WithGoogleURL("http://127.0.0.1:1"))
	require.NoError(t, g.InitializeSupportedLanguages(context.Background()))

	_, err := g.Translate(context.Background(), language.MustParse("tlh"), "hello", language.Und)
	var unsupported *translate.UnsupportedLanguageError
	require.ErrorAs(t, err, &unsupported)
	assert.Contains(t, unsupported.Message, "isn't supported by Google Translate")
}

func TestLibre(t *testing.T) {
	t.Parallel()

	var translateCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/languages":
			_, _ = w.Write([]byte(`[{"code":"en","name":"English"},{"code":"de","name":"German"}]`))
		case "/translate":
			translateCalls.Add(1)
			var req map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "secret", req["api_key"])
			assert.Equal(t, "de", req["target"])
			assert.Equal(t, "auto", req["source"])
			_, _ = w.Write([]byte(`{"translatedText":"Hallo","detectedLanguage":{"language":"en","confidence":90}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	l := translate.NewLibre(zerolog.Nop(), srv.URL+"/", "secret")
	require.NoError(t, l.InitializeSupportedLanguages(context.Background()))
	assert.Equal(t, []translate.Language{{Code: "en", Name: "English"}, {Code: "de", Name: "German"}}, l.SupportedLanguages())

	res, err := l.Translate(context.Background(), language.German, "Hello", language.Und)
	require.NoError(t, err)
	assert.Equal(t, "Hallo", res.Text)
	assert.Equal(t, "en", res.Source)

	_, err = l.Translate(context.Background(), language.Japanese, "Hello", language.Und)
	var unsupported *translate.UnsupportedLanguageError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "Sorry, Japanese isn't supported by LibreTranslate.", unsupported.Error())
	assert.Equal(t, int32(1), translateCalls.Load())
}

func TestLibre_ClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/languages" {
			_, _ = w.Write([]byte(`[{"code":"fr","name":"French"}]`))
			return
		}
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Invalid API key"}`))
	}))
	t.Cleanup(srv.Close)

	l := translate.NewLibre(zerolog.Nop(), srv.URL, "")
	require.NoError(t, l.InitializeSupportedLanguages(context.Background()))

	_, err := l.Translate(context.Background(), language.French, "Hello", language.Und)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
	assert.Equal(t, int32(1), calls.Load())
}
