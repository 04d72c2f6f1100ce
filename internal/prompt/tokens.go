package prompt

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	"github.com/harforge/harforge/internal/config"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// EstimateTokens approximates the token count of s. Uses the cl100k_base
// encoding when available, else the chars-per-token ratio. Close enough for
// sizing prompts and logging; billing uses the agent's reported usage.
func EstimateTokens(s string) int {
	encOnce.Do(func() {
		var err error
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Debug().Err(err).Msg("tiktoken encoding unavailable, using ratio estimate")
		}
	})
	if enc == nil {
		return len(s) / config.TokenEstimateRatio
	}
	return len(enc.Encode(s, nil, nil))
}
