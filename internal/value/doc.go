// Package value provides the closed, tagged value type carried by every
// parameter read, write and change notification in the object dictionary.
//
// A Value is one of:
//
//	bool | int64 | float64 | string | []byte
//	[]bool | []int64 | []float64 | []string | [][]byte
//	tuple (ordered, heterogeneous []Value)
//
// Values are immutable once constructed. Constructors copy their input and
// accessors return copies, so a Value can be shared freely between the tree,
// update queues and transport goroutines without locking.
//
// # Strict Typing
//
// Extracting the wrong variant fails with ErrTypeMismatch. There is no implicit
// coercion between int64 and float64; use Convert, which fails with
// ErrRangeOrPrecisionLoss when the target cannot hold the source exactly:
//
//	v := value.Int(1 << 60)
//	if _, err := value.Convert(v, value.KindFloat); errors.Is(err, value.ErrRangeOrPrecisionLoss) {
//	    // 2^60 + 1 style values would lose precision as float64
//	}
//
// # Encodings
//
// Transports move values across three encodings:
//
//   - Text (Parse / String): CLI literals
//   - JSON (MarshalJSON / DecodeJSON): HTTP and websocket JSON-RPC
//   - CBOR (MarshalCBOR / DecodeCBOR): compact MQTT payloads
//
// Decoding always targets the declared Kind of the destination parameter.
package value
