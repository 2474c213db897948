package audit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "simple", body: "<html><title>Acme</title></html>", want: "Acme"},
		{name: "attributes and case", body: `<TITLE lang="tr">  Acme Parke </TITLE>`, want: "Acme Parke"},
		{name: "entities", body: "<title>Tom &amp; Jerry</title>", want: "Tom & Jerry"},
		{name: "multiline", body: "<title>\nAcme\n</title>", want: "Acme"},
		{name: "blank", body: "<title>   </title>", want: ""},
		{name: "missing", body: "<html></html>", want: ""},
		{name: "empty body", body: "", want: ""},
		{name: "first wins", body: "<title>One</title><title>Two</title>", want: "One"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, extractTitle(tt.body))
		})
	}
}

func TestExtractTitle_Truncates(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ş", 300)
	got := extractTitle("<title>" + long + "</title>")
	require.Equal(t, 256, len([]rune(got)))
}

func TestHasViewport(t *testing.T) {
	t.Parallel()

	require.True(t, hasViewport(`<meta name="viewport" content="width=device-width">`))
	require.True(t, hasViewport(`<META charset="utf-8" NAME='viewport'>`))
	require.False(t, hasViewport(`<meta name="description" content="viewport">`))
	require.False(t, hasViewport(""))
}

func TestContactsScan(t *testing.T) {
	t.Parallel()

	c := &contacts{}
	c.scan(`Mail: info@acme.com.tr, logo@2x.png, Tel: 0212 555 11 22
	<a href="tel:+905551112233">ara</a>`)

	require.Equal(t, []string{"info@acme.com.tr"}, c.emails)
	require.Contains(t, c.phones, "0212 555 11 22")
	require.Contains(t, c.phones, "+905551112233")
}

func TestContactAnchors(t *testing.T) {
	t.Parallel()

	body := `
<a href="/about">About</a>
<a class="nav" href="/iletisim">Bize Yazın</a>
<a href="/page?id=3">Contact us</a>
<a href="#top">Contact</a>
<a href='https://acme.com/bize-ulasin'>Ulaşın</a>`

	require.Equal(t,
		[]string{"/iletisim", "/page?id=3", "https://acme.com/bize-ulasin"},
		contactAnchors(body))
	require.Nil(t, contactAnchors(""))
}

func TestHomepageContactSignal(t *testing.T) {
	t.Parallel()

	require.True(t, homepageContactSignal(`<a href="MAILTO:x@y.com">`))
	require.True(t, homepageContactSignal(`<a href="tel:123">`))
	require.True(t, homepageContactSignal(`<a>İletişim</a>`))
	require.True(t, homepageContactSignal(`<a>CONTACT</a>`))
	require.False(t, homepageContactSignal(`<p>contact us anytime</p>`))
}
