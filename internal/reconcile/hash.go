package reconcile

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"jobwatch-engine/internal/domain"
	"jobwatch-engine/internal/normalize"
)

// Hash digests the mutable fields of a record into the content_hash used for
// change detection. Fields are concatenated in a fixed order with a NUL
// separator so values cannot bleed into each other. The description goes in
// as canonical plain text: sources that re-render identical content with
// different markup hash the same.
//
// posted_at and updated_at_source are source-asserted timestamps, not
// content, and stay out of the digest.
func Hash(r domain.NormalizedRecord) string {
	h := xxhash.New()
	for _, f := range []string{
		r.Title,
		r.Department,
		r.LocationText,
		r.RemoteType,
		r.EmploymentType,
		r.ApplyURL,
		normalize.DescriptionText(r.DescriptionHTML),
	} {
		_, _ = h.WriteString(f)
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
