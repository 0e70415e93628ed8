package server

import "github.com/saint0x/pullmate/pkg/github"

type poolClients struct {
	pool *github.Pool
}

// PoolClients adapts a github.Pool to ClientProvider
func PoolClients(pool *github.Pool) ClientProvider {
	return poolClients{pool: pool}
}

func (p poolClients) For(token string) (GitHubClient, error) {
	c, err := p.pool.For(token)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (p poolClients) Forget(token string) {
	p.pool.Forget(token)
}
