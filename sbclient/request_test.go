package sbclient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Run("target url only", func(t *testing.T) {
		body, err := Build("https://link.example.com/a/abc123", "", "")
		require.NoError(t, err)

		assert.Equal(t, `{"target_url":"https://link.example.com/a/abc123"}`, string(body))
	})

	t.Run("all fields in fixed order", func(t *testing.T) {
		body, err := Build("https://example.com/x", "my-slug_1", "Please wait...")
		require.NoError(t, err)

		assert.Equal(t, `{"target_url":"https://example.com/x","slug":"my-slug_1","loading_message":"Please wait..."}`, string(body))
	})

	t.Run("absent slug is omitted entirely", func(t *testing.T) {
		body, err := Build("https://example.com/x", "", "hello")
		require.NoError(t, err)

		assert.Equal(t, `{"target_url":"https://example.com/x","loading_message":"hello"}`, string(body))
		assert.NotContains(t, string(body), "slug")
		assert.NotContains(t, string(body), "null")
	})

	t.Run("absent message is omitted entirely", func(t *testing.T) {
		body, err := Build("https://example.com/x", "abc", "")
		require.NoError(t, err)

		assert.Equal(t, `{"target_url":"https://example.com/x","slug":"abc"}`, string(body))
	})

	t.Run("deterministic", func(t *testing.T) {
		inputs := []LinkRequest{
			{TargetURL: "https://example.com/?a=1&b=2"},
			{TargetURL: "https://example.com/p", Slug: "s1"},
			{TargetURL: "https://example.com/p", LoadingMessage: "<b>잠시만 기다려주세요</b>"},
			{TargetURL: "http://example.com", Slug: "x", LoadingMessage: "\"quoted\"\n"},
		}

		for _, in := range inputs {
			first, err := in.Canonical()
			require.NoError(t, err)

			for range 20 {
				again, err := in.Canonical()
				require.NoError(t, err)
				assert.Equal(t, first, again)
			}
		}
	})

	t.Run("no html escaping and raw utf-8", func(t *testing.T) {
		body, err := Build("https://example.com/?a=1&b=<2>", "", "<strong>잠시만</strong>")
		require.NoError(t, err)

		assert.Equal(t, `{"target_url":"https://example.com/?a=1&b=<2>","loading_message":"<strong>잠시만</strong>"}`, string(body))
	})

	t.Run("standard json escaping", func(t *testing.T) {
		body, err := Build("https://example.com/", "", "line1\nline2 \"q\" \\")
		require.NoError(t, err)

		assert.Equal(t, `{"target_url":"https://example.com/","loading_message":"line1\nline2 \"q\" \\"}`, string(body))
	})

	t.Run("no whitespace or trailing newline", func(t *testing.T) {
		body, err := Build("https://example.com/", "abc", "m")
		require.NoError(t, err)

		assert.False(t, strings.HasSuffix(string(body), "\n"))
		assert.NotContains(t, string(body), ": ")
		assert.NotContains(t, string(body), ", ")
	})

	t.Run("idn host kept as given", func(t *testing.T) {
		body, err := Build("https://한국.example/경로", "", "")
		require.NoError(t, err)

		assert.Equal(t, `{"target_url":"https://한국.example/경로"}`, string(body))
	})
}

func TestLinkRequestValidate(t *testing.T) {
	tests := []struct {
		name  string
		req   LinkRequest
		field string
	}{
		{"empty target", LinkRequest{}, "target_url"},
		{"relative target", LinkRequest{TargetURL: "/a/abc123"}, "target_url"},
		{"no scheme", LinkRequest{TargetURL: "link.example.com/a"}, "target_url"},
		{"ftp scheme", LinkRequest{TargetURL: "ftp://example.com/file"}, "target_url"},
		{"javascript scheme", LinkRequest{TargetURL: "javascript:alert(1)"}, "target_url"},
		{"no host", LinkRequest{TargetURL: "https:///path"}, "target_url"},
		{"unparsable", LinkRequest{TargetURL: "https://exa mple.com/"}, "target_url"},
		{"invalid host label", LinkRequest{TargetURL: "https://bad_host.example.com/"}, "target_url"},
		{"leading hyphen label", LinkRequest{TargetURL: "https://-bad.example.com/"}, "target_url"},
		{"invalid utf-8", LinkRequest{TargetURL: "https://example.com/\xff"}, "target_url"},
		{"slug with space", LinkRequest{TargetURL: "https://example.com", Slug: "my slug"}, "slug"},
		{"slug with slash", LinkRequest{TargetURL: "https://example.com", Slug: "a/b"}, "slug"},
		{"slug with unicode", LinkRequest{TargetURL: "https://example.com", Slug: "슬러그"}, "slug"},
		{"message invalid utf-8", LinkRequest{TargetURL: "https://example.com", LoadingMessage: "\xc3\x28"}, "loading_message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, KindValidation, KindOf(err))

			_, err = tt.req.Canonical()
			assert.ErrorAs(t, err, &verr)
		})
	}

	valid := []LinkRequest{
		{TargetURL: "https://link.coupang.com/a/cfvjXy"},
		{TargetURL: "HTTP://EXAMPLE.COM/UPPER"},
		{TargetURL: "http://127.0.0.1:8080/x"},
		{TargetURL: "http://[::1]:8080/x"},
		{TargetURL: "https://localhost/x"},
		{TargetURL: "https://example.com", Slug: "aB3xY9"},
		{TargetURL: "https://example.com", Slug: "with-dash_and_underscore"},
	}

	for _, req := range valid {
		assert.NoError(t, req.Validate(), req.TargetURL)
	}
}
