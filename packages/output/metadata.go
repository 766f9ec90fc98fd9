package output

import (
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

// Metadata is the summary shown next to a response.
type Metadata struct {
	StatusCode  uint16
	ContentType string
	Duration    time.Duration
	Size        int64
}

// Summarize collects the status, content type, timing and size of rec.
func Summarize(rec *http.Response) Metadata {
	return Metadata{
		StatusCode:  rec.StatusCode,
		ContentType: ContentType(rec),
		Duration:    rec.Duration,
		Size:        rec.Size,
	}
}

// Lines returns the status bar rows for m. A nil m renders placeholders.
func (m *Metadata) Lines() []string {
	if m == nil {
		return []string{"Status: N/A", "Content-Type: N/A", "Time: N/A", "Size: N/A"}
	}
	return []string{
		fmt.Sprintf("Status: %d", m.StatusCode),
		fmt.Sprintf("Content-Type: %s", m.ContentType),
		fmt.Sprintf("Time: %dms", m.Duration.Milliseconds()),
		fmt.Sprintf("Size: %d B", m.Size),
	}
}
