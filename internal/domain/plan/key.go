package plan

import (
	"encoding/hex"

	"calendar-assistant/internal/domain/calendar"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// keyEncMode uses Core Deterministic Encoding so equal inputs always hash
// to the same key.
var keyEncMode cbor.EncMode

func init() {
	var err error
	keyEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("plan: CBOR encoder initialization failed: " + err.Error())
	}
}

type keyMaterial struct {
	OriginID string `cbor:"1,keyasint"`
	Kind     string `cbor:"2,keyasint"`
	Target   string `cbor:"3,keyasint"`
}

// IdempotencyKey derives the key sent with an operation. It depends only on
// the originating intent, the operation kind and the target, so replanning
// the same intent yields the same keys.
func IdempotencyKey(originID string, kind OperationKind, target string) string {
	return digest(keyMaterial{OriginID: originID, Kind: kind.String(), Target: target})
}

// SlotTarget names a not-yet-existing event by owner and requested slot.
func SlotTarget(ownerID string, slot calendar.Window) string {
	return "slot:" + ownerID + "@" + slot.Key()
}

// EventTarget names an existing event.
func EventTarget(eventID string) string {
	return "event:" + eventID
}

// PlanID derives a stable plan identifier for a user's share of an intent.
func PlanID(originID, userID string) string {
	return digest(keyMaterial{OriginID: originID, Kind: "plan", Target: "user:" + userID})[:32]
}

func digest(m keyMaterial) string {
	b, err := keyEncMode.Marshal(m)
	if err != nil {
		// plain strings always encode
		panic("plan: key encoding failed: " + err.Error())
	}
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}
