package floor

const (
	DefaultTake = 10
	MaxTake     = 1000
)

type PageRequest struct {
	Search string `form:"search" json:"search"`
	Skip   int    `form:"skip" json:"skip"`
	Take   int    `form:"take" json:"take"`
}

// Normalize clamps skip and take into range. A zero defaultTake or maxTake
// falls back to DefaultTake and MaxTake.
func (p PageRequest) Normalize(defaultTake, maxTake int) PageRequest {
	if defaultTake <= 0 {
		defaultTake = DefaultTake
	}
	if maxTake <= 0 {
		maxTake = MaxTake
	}
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Take <= 0 {
		p.Take = defaultTake
	}
	if p.Take > maxTake {
		p.Take = maxTake
	}
	return p
}

type Page[T any] struct {
	Count int64 `json:"count"`
	Skip  int   `json:"skip"`
	Take  int   `json:"take"`
	Data  []T   `json:"data"`
}
