package track

import (
	"fmt"
	"time"

	"paysweep/internal/shared/biztime"
)

// Track maps a gateway-assigned track id to a local order. A used track must
// never be the basis of a second wallet credit or paid transition.
type Track struct {
	id        uint
	trackID   string
	orderID   uint
	tradeNo   string
	isUsed    bool
	createdAt time.Time
}

func NewTrack(trackID, tradeNo string, orderID uint) (*Track, error) {
	if trackID == "" {
		return nil, fmt.Errorf("track ID is required")
	}
	if tradeNo == "" {
		return nil, fmt.Errorf("trade number is required")
	}

	return &Track{
		trackID:   trackID,
		orderID:   orderID,
		tradeNo:   tradeNo,
		createdAt: biztime.NowUTC(),
	}, nil
}

// MarkUsed consumes the track. It only ever moves forward; calling it on an
// already used track is a no-op.
func (t *Track) MarkUsed() {
	t.isUsed = true
}

func (t *Track) ID() uint {
	return t.id
}

func (t *Track) TrackID() string {
	return t.trackID
}

func (t *Track) OrderID() uint {
	return t.orderID
}

func (t *Track) TradeNo() string {
	return t.tradeNo
}

func (t *Track) IsUsed() bool {
	return t.isUsed
}

func (t *Track) CreatedAt() time.Time {
	return t.createdAt
}

// SetID sets the track ID after persistence (used by repository after Create)
func (t *Track) SetID(id uint) {
	t.id = id
}

func ReconstructTrack(
	id uint,
	trackID string,
	orderID uint,
	tradeNo string,
	isUsed bool,
	createdAt time.Time,
) *Track {
	return &Track{
		id:        id,
		trackID:   trackID,
		orderID:   orderID,
		tradeNo:   tradeNo,
		isUsed:    isUsed,
		createdAt: createdAt,
	}
}
