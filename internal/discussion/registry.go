package discussion

import (
	"fmt"

	"github.com/pribylovaa/agora/internal/github"
	"github.com/pribylovaa/agora/internal/models"
)

var _ Provider = (*GitHub)(nil)

// Options — зависимости для сборки поставщика по имени.
type Options struct {
	Client *github.Client
	Proxy  Source
	Tokens TokenSource
}

// New собирает поставщика по имени из конфигурации виджета.
func New(name string, opts Options) (Provider, error) {
	switch name {
	case ProviderGitHub, "":
		if opts.Client == nil {
			return nil, fmt.Errorf("discussion: github client is required: %w", models.ErrConfiguration)
		}
		return NewGitHub(opts.Client, opts.Proxy, opts.Tokens), nil
	default:
		return nil, fmt.Errorf("discussion: unknown provider %q: %w", name, models.ErrConfiguration)
	}
}
