package browser

import (
	"testing"

	"autored/pkg/auth"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in     string
		isText bool
		query  string
	}{
		{"img[alt='User Avatar']", false, "img[alt='User Avatar']"},
		{"input[type='file']", false, "input[type='file']"},
		{"text=QR code login", true, "//*[text()[contains(normalize-space(.), 'QR code login')]]"},
		{"text='Publish'", true, "//*[text()[contains(normalize-space(.), 'Publish')]]"},
		{"text=发布", true, "//*[text()[contains(normalize-space(.), '发布')]]"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			s := parseSelector(tt.in)
			assert.Equal(t, tt.isText, s.isText())
			assert.Equal(t, tt.query, s.query())
		})
	}
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, "'plain'", xpathLiteral("plain"))
	assert.Equal(t, `"it's"`, xpathLiteral("it's"))
	assert.Equal(t, `concat('say "it', "'", 's"')`, xpathLiteral(`say "it's"`))
}

func TestJSExpressions(t *testing.T) {
	css := parseSelector("div[role='textbox']")
	assert.Equal(t, `document.querySelectorAll("div[role='textbox']").length`, css.jsCount())
	assert.Equal(t, `document.querySelector("div[role='textbox']")`, css.jsFirst())

	text := parseSelector("text=Publish")
	assert.Contains(t, text.jsCount(), "XPathResult.NUMBER_TYPE")
	assert.Contains(t, text.jsCount(), `count(//*[text()`)
	assert.Contains(t, text.jsClear(), "FIRST_ORDERED_NODE_TYPE")
}

func TestCookieConversion(t *testing.T) {
	c := auth.Cookie{
		Name:     "web_session",
		Value:    "v",
		Domain:   ".xiaohongshu.com",
		Path:     "/",
		Expires:  1767225600,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "None",
	}
	p := toCookieParam(c)
	assert.Equal(t, network.CookieSameSiteNone, p.SameSite)
	if assert.NotNil(t, p.Expires) {
		assert.Equal(t, int64(1767225600), p.Expires.Time().Unix())
	}

	session := toCookieParam(auth.Cookie{Name: "s", Expires: -1})
	assert.Nil(t, session.Expires)

	back := fromNetworkCookie(&network.Cookie{
		Name:     "s",
		Value:    "x",
		Domain:   "creator.xiaohongshu.com",
		Path:     "/",
		Expires:  -1,
		Session:  true,
		SameSite: "",
	})
	assert.Equal(t, float64(-1), back.Expires)
	assert.Equal(t, "Lax", back.SameSite)
}
