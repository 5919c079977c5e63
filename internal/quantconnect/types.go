package quantconnect

import (
	"time"

	"github.com/wonny/qcdash/internal/contracts"
)

// LiveStatus is the normalized deployment status
type LiveStatus string

const (
	LiveRunning    LiveStatus = "running"
	LiveStopped    LiveStatus = "stopped"
	LiveLiquidated LiveStatus = "liquidated"
	LiveError      LiveStatus = "error"
	LiveOther      LiveStatus = "other"
)

// Project is a QuantConnect project
type Project struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Backtest is one entry of a project's backtest list
type Backtest struct {
	ID        string    `json:"id"`
	ProjectID int64     `json:"project_id"`
	Name      string    `json:"name"`
	Created   time.Time `json:"created"`
	Completed bool      `json:"completed"`
	Status    string    `json:"status"`
	Progress  float64   `json:"progress"`
}

// ClosedTrade is a realized trade from the backtest trade log
type ClosedTrade struct {
	ProfitLoss float64 `json:"profit_loss"`
}

// BacktestResult is a backtest plus its reported statistics and equity series
type BacktestResult struct {
	Backtest

	Statistics        Statistics              `json:"statistics"`
	RuntimeStatistics Statistics              `json:"runtime_statistics"`
	Equity            []contracts.EquityPoint `json:"equity"`
	ClosedTrades      []ClosedTrade           `json:"closed_trades"`
	TotalTrades       *int                    `json:"total_trades,omitempty"`
}

// LiveDeployment is one live algorithm deployment
type LiveDeployment struct {
	ProjectID   int64      `json:"project_id"`
	ProjectName string     `json:"project_name,omitempty"`
	DeployID    string     `json:"deploy_id"`
	Status      LiveStatus `json:"status"`
	RawStatus   string     `json:"raw_status"`
	Launched    time.Time  `json:"launched"`
	Stopped     *time.Time `json:"stopped,omitempty"`
	Brokerage   string     `json:"brokerage,omitempty"`
}

// Running reports whether the deployment is currently trading
func (d LiveDeployment) Running() bool {
	return d.Status == LiveRunning
}

// LiveResult is the current state of a project's live deployment
type LiveResult struct {
	Deployment LiveDeployment

	Statistics        Statistics
	RuntimeStatistics Statistics
	Equity            []contracts.EquityPoint

	// CurrentEquity is the latest portfolio value, if reported
	CurrentEquity *float64
}
