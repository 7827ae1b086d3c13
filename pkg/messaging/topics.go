// Package messaging carries change notifications between the mutation sites
// and everything holding cached query results. Within one process the bus
// dispatches synchronously; with a RabbitMQ connection attached the same
// events also fan out to other client instances.
package messaging

type ChangeTopic string

const (
	// ContractsChanged is published after any mutation that can alter
	// contract listings or price bounds (mark-sold, portfolio add/remove,
	// watcher-detected new contracts).
	ContractsChanged ChangeTopic = "contracts_changed"
	// PortfolioChanged is published after portfolio item mutations.
	PortfolioChanged ChangeTopic = "portfolio_changed"
)

// ChangeEvent describes one mutation. Origin carries the emitting session id
// so an instance can tell its own echoes from remote changes.
type ChangeEvent struct {
	ContractId int    `json:"contract_id,omitempty"`
	Action     string `json:"action"`
	Origin     string `json:"origin,omitempty"`
}

const (
	ActionAdded    = "added"
	ActionRemoved  = "removed"
	ActionSold     = "sold"
	ActionNewMatch = "new_match"
)
