package msg

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"

	"liquidityTx/internal/fixedpoint"
)

// Pack encodes m into its wire payload.
func Pack(m Msg) (*anypb.Any, error) {
	value, err := m.MarshalWire()
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", m.TypeURL(), err)
	}
	return &anypb.Any{TypeUrl: m.TypeURL(), Value: value}, nil
}

// Decode parses a wire payload back into its message.
func Decode(payload *anypb.Any) (Msg, error) {
	if payload == nil {
		return nil, fmt.Errorf("nil payload")
	}
	m, err := newMsg(payload.GetTypeUrl())
	if err != nil {
		return nil, err
	}
	if err := m.unmarshalWire(payload.GetValue()); err != nil {
		return nil, fmt.Errorf("decode %s: %w", payload.GetTypeUrl(), err)
	}
	return m, nil
}

func newMsg(typeURL string) (Msg, error) {
	switch typeURL {
	case TypeURLCreateBalancerPool:
		return &MsgCreateBalancerPool{}, nil
	case TypeURLJoinPool:
		return &MsgJoinPool{}, nil
	case TypeURLJoinSwapExternAmountIn:
		return &MsgJoinSwapExternAmountIn{}, nil
	case TypeURLExitPool:
		return &MsgExitPool{}, nil
	case TypeURLSwapExactAmountIn:
		return &MsgSwapExactAmountIn{}, nil
	case TypeURLSwapExactAmountOut:
		return &MsgSwapExactAmountOut{}, nil
	case TypeURLLockTokens:
		return &MsgLockTokens{}, nil
	case TypeURLBeginUnlocking:
		return &MsgBeginUnlocking{}, nil
	default:
		return nil, fmt.Errorf("unknown type url %q", typeURL)
	}
}

// DecProtoString converts a Dec text value into its wire form.
func DecProtoString(dec string) string {
	return fixedpoint.StripLeadingZerosAndDot(dec)
}

// DecFromProtoString reverses DecProtoString for values below one.
func DecFromProtoString(s string) string {
	if s == "" || strings.Contains(s, ".") {
		return s
	}
	prec := fixedpoint.DecPrecision
	if len(s) <= prec {
		return "0." + strings.Repeat("0", prec-len(s)) + s
	}
	return s[:len(s)-prec] + "." + s[len(s)-prec:]
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendUint64(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendEmbedded(b []byte, num protowire.Number, inner []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

func encodeCoin(c Coin) []byte {
	var b []byte
	b = appendString(b, 1, c.Denom)
	b = appendString(b, 2, c.Amount)
	return b
}

func appendCoins(b []byte, num protowire.Number, coins []Coin) []byte {
	for _, c := range coins {
		b = appendEmbedded(b, num, encodeCoin(c))
	}
	return b
}

func decodeCoin(b []byte) (Coin, error) {
	var c Coin
	err := walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			c.Denom = string(f.bytes)
		case 2:
			c.Amount = string(f.bytes)
		}
		return nil
	})
	return c, err
}

type field struct {
	num    protowire.Number
	typ    protowire.Type
	bytes  []byte
	varint uint64
}

// walkFields calls fn for every field of an encoded message. Unknown wire
// types are skipped.
func walkFields(b []byte, fn func(field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if typ != protowire.VarintType && typ != protowire.BytesType {
			continue
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (m *MsgCreateBalancerPool) MarshalWire() ([]byte, error) {
	var params []byte
	params = appendString(params, 1, DecProtoString(m.PoolParams.SwapFee))
	params = appendString(params, 2, DecProtoString(m.PoolParams.ExitFee))

	var b []byte
	b = appendString(b, 1, m.Sender)
	b = appendEmbedded(b, 2, params)
	for _, asset := range m.PoolAssets {
		var inner []byte
		inner = appendEmbedded(inner, 1, encodeCoin(asset.Token))
		inner = appendString(inner, 2, asset.Weight)
		b = appendEmbedded(b, 3, inner)
	}
	b = appendString(b, 4, m.FuturePoolGovernor)
	return b, nil
}

func (m *MsgCreateBalancerPool) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			m.Sender = string(f.bytes)
		case 2:
			return walkFields(f.bytes, func(p field) error {
				switch p.num {
				case 1:
					m.PoolParams.SwapFee = DecFromProtoString(string(p.bytes))
				case 2:
					m.PoolParams.ExitFee = DecFromProtoString(string(p.bytes))
				}
				return nil
			})
		case 3:
			var asset PoolAsset
			err := walkFields(f.bytes, func(a field) error {
				switch a.num {
				case 1:
					c, err := decodeCoin(a.bytes)
					asset.Token = c
					return err
				case 2:
					asset.Weight = string(a.bytes)
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.PoolAssets = append(m.PoolAssets, asset)
		case 4:
			m.FuturePoolGovernor = string(f.bytes)
		}
		return nil
	})
}

func (m *MsgJoinPool) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Sender)
	b = appendUint64(b, 2, m.PoolID)
	b = appendString(b, 3, m.ShareOutAmount)
	b = appendCoins(b, 4, m.TokenInMaxs)
	return b, nil
}

func (m *MsgJoinPool) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			m.Sender = string(f.bytes)
		case 2:
			m.PoolID = f.varint
		case 3:
			m.ShareOutAmount = string(f.bytes)
		case 4:
			c, err := decodeCoin(f.bytes)
			if err != nil {
				return err
			}
			m.TokenInMaxs = append(m.TokenInMaxs, c)
		}
		return nil
	})
}

func (m *MsgJoinSwapExternAmountIn) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Sender)
	b = appendUint64(b, 2, m.PoolID)
	b = appendEmbedded(b, 3, encodeCoin(m.TokenIn))
	b = appendString(b, 4, m.ShareOutMinAmount)
	return b, nil
}

func (m *MsgJoinSwapExternAmountIn) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			m.Sender = string(f.bytes)
		case 2:
			m.PoolID = f.varint
		case 3:
			c, err := decodeCoin(f.bytes)
			m.TokenIn = c
			return err
		case 4:
			m.ShareOutMinAmount = string(f.bytes)
		}
		return nil
	})
}

func (m *MsgExitPool) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Sender)
	b = appendUint64(b, 2, m.PoolID)
	b = appendString(b, 3, m.ShareInAmount)
	b = appendCoins(b, 4, m.TokenOutMins)
	return b, nil
}

func (m *MsgExitPool) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			m.Sender = string(f.bytes)
		case 2:
			m.PoolID = f.varint
		case 3:
			m.ShareInAmount = string(f.bytes)
		case 4:
			c, err := decodeCoin(f.bytes)
			if err != nil {
				return err
			}
			m.TokenOutMins = append(m.TokenOutMins, c)
		}
		return nil
	})
}

func (m *MsgSwapExactAmountIn) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Sender)
	for _, r := range m.Routes {
		var inner []byte
		inner = appendUint64(inner, 1, r.PoolID)
		inner = appendString(inner, 2, r.TokenOutDenom)
		b = appendEmbedded(b, 2, inner)
	}
	b = appendEmbedded(b, 3, encodeCoin(m.TokenIn))
	b = appendString(b, 4, m.TokenOutMinAmount)
	return b, nil
}

func (m *MsgSwapExactAmountIn) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			m.Sender = string(f.bytes)
		case 2:
			var r SwapAmountInRoute
			err := walkFields(f.bytes, func(rf field) error {
				switch rf.num {
				case 1:
					r.PoolID = rf.varint
				case 2:
					r.TokenOutDenom = string(rf.bytes)
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.Routes = append(m.Routes, r)
		case 3:
			c, err := decodeCoin(f.bytes)
			m.TokenIn = c
			return err
		case 4:
			m.TokenOutMinAmount = string(f.bytes)
		}
		return nil
	})
}

func (m *MsgSwapExactAmountOut) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Sender)
	for _, r := range m.Routes {
		var inner []byte
		inner = appendUint64(inner, 1, r.PoolID)
		inner = appendString(inner, 2, r.TokenInDenom)
		b = appendEmbedded(b, 2, inner)
	}
	b = appendString(b, 3, m.TokenInMaxAmount)
	b = appendEmbedded(b, 4, encodeCoin(m.TokenOut))
	return b, nil
}

func (m *MsgSwapExactAmountOut) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			m.Sender = string(f.bytes)
		case 2:
			var r SwapAmountOutRoute
			err := walkFields(f.bytes, func(rf field) error {
				switch rf.num {
				case 1:
					r.PoolID = rf.varint
				case 2:
					r.TokenInDenom = string(rf.bytes)
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.Routes = append(m.Routes, r)
		case 3:
			m.TokenInMaxAmount = string(f.bytes)
		case 4:
			c, err := decodeCoin(f.bytes)
			m.TokenOut = c
			return err
		}
		return nil
	})
}

func (m *MsgLockTokens) MarshalWire() ([]byte, error) {
	duration, err := proto.MarshalOptions{Deterministic: true}.Marshal(durationpb.New(time.Duration(m.Duration)))
	if err != nil {
		return nil, fmt.Errorf("marshal duration: %w", err)
	}
	var b []byte
	b = appendString(b, 1, m.Owner)
	b = appendEmbedded(b, 2, duration)
	b = appendCoins(b, 3, m.Coins)
	return b, nil
}

func (m *MsgLockTokens) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			m.Owner = string(f.bytes)
		case 2:
			var d durationpb.Duration
			if err := proto.Unmarshal(f.bytes, &d); err != nil {
				return fmt.Errorf("unmarshal duration: %w", err)
			}
			m.Duration = Duration(d.AsDuration())
		case 3:
			c, err := decodeCoin(f.bytes)
			if err != nil {
				return err
			}
			m.Coins = append(m.Coins, c)
		}
		return nil
	})
}

func (m *MsgBeginUnlocking) MarshalWire() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, m.Owner)
	b = appendUint64(b, 2, m.ID)
	b = appendCoins(b, 3, m.Coins)
	return b, nil
}

func (m *MsgBeginUnlocking) unmarshalWire(b []byte) error {
	return walkFields(b, func(f field) error {
		switch f.num {
		case 1:
			m.Owner = string(f.bytes)
		case 2:
			m.ID = f.varint
		case 3:
			c, err := decodeCoin(f.bytes)
			if err != nil {
				return err
			}
			m.Coins = append(m.Coins, c)
		}
		return nil
	})
}
