package orchestrator

import (
	"sync"

	"github.com/TobiSchelling/CampaignCenter/internal/campaign"
	"github.com/TobiSchelling/CampaignCenter/internal/database"
)

// Archive keeps full results so that history entries can be re-displayed,
// and logs agent calls. *database.DB satisfies it.
type Archive interface {
	SaveCampaign(entry campaign.HistoryEntry, result *campaign.Result) error
	GetCampaign(id string) (*campaign.Result, error)
	ClearCampaigns() error
	RecordAgentCall(c database.AgentCall) (int64, error)
}

// memoryArchive is the fallback when no database is supplied.
type memoryArchive struct {
	mu      sync.Mutex
	results map[string]*campaign.Result
	calls   int64
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{results: make(map[string]*campaign.Result)}
}

func (m *memoryArchive) SaveCampaign(entry campaign.HistoryEntry, result *campaign.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[entry.ID] = result
	return nil
}

func (m *memoryArchive) GetCampaign(id string) (*campaign.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results[id], nil
}

func (m *memoryArchive) ClearCampaigns() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = make(map[string]*campaign.Result)
	return nil
}

func (m *memoryArchive) RecordAgentCall(database.AgentCall) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.calls, nil
}
