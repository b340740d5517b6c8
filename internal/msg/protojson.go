package msg

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/durationpb"
)

// ProtoJSON renders m in the chain's proto-JSON form, as read by the chain
// CLI when signing an unsigned transaction file.
func ProtoJSON(m Msg) (json.RawMessage, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", m.TypeURL(), err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("reshape %s: %w", m.TypeURL(), err)
	}

	typeURL, err := json.Marshal(m.TypeURL())
	if err != nil {
		return nil, err
	}
	fields["@type"] = typeURL

	if lock, ok := m.(*MsgLockTokens); ok {
		duration, err := protojson.Marshal(durationpb.New(time.Duration(lock.Duration)))
		if err != nil {
			return nil, fmt.Errorf("marshal duration: %w", err)
		}
		fields["duration"] = duration
	}

	return json.Marshal(fields)
}
