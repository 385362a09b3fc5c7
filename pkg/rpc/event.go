package rpc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EventType names a CometBFT event, matched by the tm.event query tag.
type EventType string

const (
	EventNewBlock            EventType = "NewBlock"
	EventNewBlockHeader      EventType = "NewBlockHeader"
	EventTx                  EventType = "Tx"
	EventVote                EventType = "Vote"
	EventValidatorSetUpdates EventType = "ValidatorSetUpdates"
	EventNewRound            EventType = "NewRound"
	EventCompleteProposal    EventType = "CompleteProposal"
)

// Query returns the subscription query selecting events of this type.
func (t EventType) Query() string {
	return fmt.Sprintf("tm.event = '%s'", t)
}

// Amino type tags carried in Event.Data.Type.
const (
	dataTypeNewBlock       = "tendermint/event/NewBlock"
	dataTypeNewBlockHeader = "tendermint/event/NewBlockHeader"
)

// Event is a single message delivered on a subscription.
type Event struct {
	Query  string              `json:"query"`
	Data   EventData           `json:"data"`
	Events map[string][]string `json:"events,omitempty"`
}

// EventData is the typed payload of an event. Value is kept raw and decoded
// on demand by the typed accessors.
type EventData struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// NewBlock decodes the payload of a NewBlock event.
func (e Event) NewBlock() (*NewBlock, error) {
	var nb NewBlock
	if err := e.decode(dataTypeNewBlock, &nb); err != nil {
		return nil, err
	}
	return &nb, nil
}

// NewBlockHeader decodes the payload of a NewBlockHeader event.
func (e Event) NewBlockHeader() (*NewBlockHeader, error) {
	var nh NewBlockHeader
	if err := e.decode(dataTypeNewBlockHeader, &nh); err != nil {
		return nil, err
	}
	return &nh, nil
}

func (e Event) decode(want string, dst interface{}) error {
	if e.Data.Type != want {
		return fmt.Errorf("rpc: event data is %q, not %q", e.Data.Type, want)
	}
	if err := json.Unmarshal(e.Data.Value, dst); err != nil {
		return fmt.Errorf("rpc: decode %s: %w", want, err)
	}
	return nil
}

// NewBlock is the payload of a NewBlock event.
type NewBlock struct {
	Block   Block           `json:"block"`
	BlockID json.RawMessage `json:"block_id,omitempty"`
}

// NewBlockHeader is the payload of a NewBlockHeader event.
type NewBlockHeader struct {
	Header Header `json:"header"`
}

// Block holds the parts of a block this client inspects. The remaining
// fields stay available through Event.Data.Value.
type Block struct {
	Header Header `json:"header"`
	Data   struct {
		Txs []string `json:"txs"`
	} `json:"data"`
}

// Header is a block header. Heights are encoded as decimal strings.
type Header struct {
	ChainID         string    `json:"chain_id"`
	Height          string    `json:"height"`
	Time            time.Time `json:"time"`
	ProposerAddress string    `json:"proposer_address"`
}

// HeightInt parses the header height.
func (h Header) HeightInt() (int64, error) {
	n, err := strconv.ParseInt(h.Height, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rpc: parse height %q: %w", h.Height, err)
	}
	return n, nil
}
