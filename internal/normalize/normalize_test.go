package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a  b\n\tc  "))
	assert.Equal(t, "", CleanText("   \n "))
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "Bengaluru, Karnataka", Location("Location: Bengaluru ,  Karnataka"))
	assert.Equal(t, "Pune", Location("Pune, pune"))
	assert.Equal(t, "", Location(""))
}

func TestRemoteType(t *testing.T) {
	assert.Equal(t, "remote", RemoteType("Fully Remote"))
	assert.Equal(t, "hybrid", RemoteType("Hybrid (3 days)"))
	assert.Equal(t, "onsite", RemoteType("On-site"))
	assert.Equal(t, "onsite", RemoteType("on site"))
	assert.Equal(t, "unknown", RemoteType(""))
	assert.Equal(t, "unknown", RemoteType("Office first"))
}

func TestDescriptionText(t *testing.T) {
	in := `<div><h2>About</h2><p>We build   things.</p><script>track()</script></div>`
	assert.Equal(t, "About We build things.", DescriptionText(in))

	// markup-only differences collapse to the same text
	alt := `<section><h2>About</h2>` + "\n\n" + `<p>We  build things.</p></section>`
	assert.Equal(t, DescriptionText(in), DescriptionText(alt))

	assert.Equal(t, "", DescriptionText("  "))
	assert.Equal(t, "plain words", DescriptionText("plain   words"))
}
