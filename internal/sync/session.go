package sync

import "errors"

// State is a SyncSession's position in the three-message protocol.
type State int

const (
	StateReady State = iota
	StateAwaitingResponse
	StateProcessingResponse
	StateComplete
	StateFailed
)

var ErrWrongState = errors.New("sync: operation invalid in current state")

// SyncOffer is the initiator's first message: the IBLT built from its own
// message ids.
type SyncOffer struct {
	IBLTBytes      []byte
	MessageCount   int
	SketchCapacity int
}

// SyncResponse is the responder's reply: its own IBLT (same cell count as
// the offer) plus the raw envelopes the initiator is missing.
type SyncResponse struct {
	IBLTBytes        []byte
	MessageCount     int
	MissingEnvelopes [][]byte
}

// SyncComplete is the initiator's final message: the envelopes the
// responder is missing.
type SyncComplete struct {
	MissingEnvelopes [][]byte
}

// InitiatorSession drives the Ready -> AwaitingResponse -> Complete path.
type InitiatorSession struct {
	State     State
	localIDs  [][16]byte
	localByID map[[16]byte][]byte
	localIBLT *IBLT
}

// NewInitiatorSession builds the initiator's IBLT at max(1, 2*len(ids))
// cells, per spec.
func NewInitiatorSession(ids [][16]byte, rawByID map[[16]byte][]byte) *InitiatorSession {
	numCells := maxInt(1, 2*len(ids))
	iblt := BuildFromKeys(ids, numCells)
	return &InitiatorSession{
		State:     StateReady,
		localIDs:  ids,
		localByID: rawByID,
		localIBLT: iblt,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Offer produces the SyncOffer and transitions to AwaitingResponse.
func (s *InitiatorSession) Offer() (*SyncOffer, error) {
	if s.State != StateReady {
		return nil, ErrWrongState
	}
	s.State = StateAwaitingResponse
	return &SyncOffer{
		IBLTBytes:      s.localIBLT.ToBytes(),
		MessageCount:   len(s.localIDs),
		SketchCapacity: len(s.localIBLT.Cells),
	}, nil
}

// Complete consumes the peer's SyncResponse, decodes against the retained
// local IBLT, and returns the peer's missing envelopes alongside what the
// initiator learned it was missing (already embedded in resp).
func (s *InitiatorSession) Complete(resp *SyncResponse) (*SyncComplete, [][]byte, error) {
	if s.State != StateAwaitingResponse {
		return nil, nil, ErrWrongState
	}
	peerIBLT, err := FromBytes(resp.IBLTBytes)
	if err != nil {
		s.State = StateFailed
		return nil, nil, err
	}
	diff, err := Subtract(s.localIBLT, peerIBLT)
	if err != nil {
		s.State = StateFailed
		return nil, nil, err
	}
	localOnly, _, err := Decode(diff)
	if err != nil {
		s.State = StateFailed
		return nil, nil, err
	}

	var missingForPeer [][]byte
	for _, id := range localOnly {
		if raw, ok := s.localByID[id]; ok {
			missingForPeer = append(missingForPeer, raw)
		}
	}

	s.State = StateComplete
	return &SyncComplete{MissingEnvelopes: missingForPeer}, resp.MissingEnvelopes, nil
}

// RespondToOffer is the responder side: it builds its own IBLT with the
// same cell count as the offer, subtracts, decodes, and returns its own
// IBLT plus the envelopes the initiator is missing.
func RespondToOffer(offer *SyncOffer, localIDs [][16]byte, rawByID map[[16]byte][]byte) (*SyncResponse, error) {
	initiatorIBLT, err := FromBytes(offer.IBLTBytes)
	if err != nil {
		return nil, err
	}
	numCells := len(initiatorIBLT.Cells)
	localIBLT := BuildFromKeys(localIDs, numCells)

	diff, err := Subtract(localIBLT, initiatorIBLT)
	if err != nil {
		return nil, err
	}
	responderOnly, initiatorOnly, err := Decode(diff)
	if err != nil {
		return nil, err
	}
	_ = initiatorOnly // initiator already has these; nothing to send back for them

	var missingForInitiator [][]byte
	for _, id := range responderOnly {
		if raw, ok := rawByID[id]; ok {
			missingForInitiator = append(missingForInitiator, raw)
		}
	}

	return &SyncResponse{
		IBLTBytes:        localIBLT.ToBytes(),
		MessageCount:     len(localIDs),
		MissingEnvelopes: missingForInitiator,
	}, nil
}
