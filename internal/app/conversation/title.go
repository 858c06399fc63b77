package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/PabloGalante/serviceai-agent/internal/domain"
	"github.com/PabloGalante/serviceai-agent/internal/observability"
)

type titleResult struct {
	title string
	err   error
}

// startTitle proposes a title in the background. The returned channel yields
// exactly one result; a nil generator resolves to "no title" immediately.
func (s *Service) startTitle(ctx context.Context, seed string) <-chan titleResult {
	out := make(chan titleResult, 1)
	if s.titles == nil {
		out <- titleResult{}
		return out
	}

	go func() {
		ctx, cancel := context.WithTimeout(ctx, s.modelTimeout)
		defer cancel()

		title, err := s.titles.ProposeTitle(ctx, seed)
		out <- titleResult{title: title, err: err}
	}()
	return out
}

// awaitTitle joins the title fan-out. Failures only get logged.
func (s *Service) awaitTitle(ctx context.Context, ch <-chan titleResult) string {
	log := observability.LoggerFromContext(ctx)

	select {
	case res := <-ch:
		if res.err != nil {
			log.Warn("title generation failed", "error", res.err)
			return ""
		}
		return normalizeTitle(res.title)
	case <-time.After(s.modelTimeout):
		log.Warn("title generation timed out")
		return ""
	case <-ctx.Done():
		return ""
	}
}

// normalizeTitle strips wrapping quotes. The placeholder name or an empty
// string mean "no title".
func normalizeTitle(title string) string {
	t := strings.TrimSpace(title)
	t = strings.TrimPrefix(t, `"`)
	t = strings.TrimSuffix(t, `"`)
	t = strings.TrimSpace(t)

	if t == "" || strings.EqualFold(t, domain.DefaultConversationName) {
		return ""
	}
	return t
}
