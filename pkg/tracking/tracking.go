package tracking

// Tracking receives usage events from the browse and portfolio views.
// Implementations must be non-blocking from the caller's perspective and
// must never fail a user action.
type Tracking interface {
	TrackSearch(sessionId string, signature string, page int, results int)
	TrackContractView(sessionId string, contractId int)
	TrackPortfolioAdd(sessionId string, contractId int)
	TrackPortfolioRemove(sessionId string, contractId int)
}

// Noop is used when no tracking transport is configured.
type Noop struct{}

func (Noop) TrackSearch(string, string, int, int) {}
func (Noop) TrackContractView(string, int)        {}
func (Noop) TrackPortfolioAdd(string, int)        {}
func (Noop) TrackPortfolioRemove(string, int)     {}
