package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yangwenmai/kirbuk/internal/model"
)

// Inspect builds the status document for a submission. Any subset of
// artifacts may exist, including none. Text artifacts are embedded, binary
// ones are linked for ttl. An artifact that disappears between the existence
// check and the read is reported as missing rather than as an error.
func Inspect(ctx context.Context, st ObjectStore, layout model.Layout, submissionID string, ttl time.Duration) (model.Status, error) {
	status := model.Status{SubmissionID: submissionID}

	for _, kind := range model.ArtifactKinds {
		key := layout.Key(submissionID, kind)

		if kind.IsText() {
			data, err := st.Get(ctx, key)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return status, fmt.Errorf("read %s: %w", kind, err)
			}
			status.Set(kind, true, string(data))
			continue
		}

		ok, err := st.Exists(ctx, key)
		if err != nil {
			return status, fmt.Errorf("check %s: %w", kind, err)
		}
		if !ok {
			continue
		}

		var link string
		if kind != model.ArtifactPayload {
			link, err = st.PresignGet(ctx, key, ttl)
			if err != nil {
				return status, fmt.Errorf("link %s: %w", kind, err)
			}
		}
		status.Set(kind, true, link)
	}
	return status, nil
}
