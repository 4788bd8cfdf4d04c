package instructions

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Value is a typed argument for an operation field. Values are compared by
// tests to prove decode(encode(x)) == x, so the struct is comparable.
type Value struct {
	kind fieldKind
	num  uint64
	key  solana.PublicKey
}

// U8 wraps a uint8 field value.
func U8(v uint8) Value { return Value{kind: kindU8, num: uint64(v)} }

// U64 wraps a uint64 field value.
func U64(v uint64) Value { return Value{kind: kindU64, num: v} }

// Key wraps a public-key field value.
func Key(k solana.PublicKey) Value { return Value{kind: kindPubkey, key: k} }

// Uint64 returns the numeric payload of a U8 or U64 value.
func (v Value) Uint64() uint64 { return v.num }

// PublicKey returns the key payload of a Key value.
func (v Value) PublicKey() solana.PublicKey { return v.key }

// Operation is a fully resolved request: discriminator, ordered field
// arguments, and ordered account addresses. Args and Accounts must match the
// schema for (Version, Op) exactly.
type Operation struct {
	Version  Version
	Op       OpCode
	Args     []Value
	Accounts []solana.PublicKey
}

// Encode serializes an operation against its schema table, producing a
// ready-to-include instruction with the program's exact wire layout.
func Encode(programID solana.PublicKey, op Operation) (*solana.GenericInstruction, error) {
	if programID.IsZero() {
		return nil, fmt.Errorf("program ID is zero")
	}

	schema, err := SchemaFor(op.Version)
	if err != nil {
		return nil, err
	}
	spec, ok := schema[op.Op]
	if !ok {
		return nil, fmt.Errorf("version %d has no operation with discriminator %d", op.Version, op.Op)
	}

	if len(op.Args) != len(spec.fields) {
		return nil, fmt.Errorf("%s: expected %d args, got %d", spec.name, len(spec.fields), len(op.Args))
	}
	if len(op.Accounts) != len(spec.accounts) {
		return nil, fmt.Errorf("%s: expected %d accounts, got %d", spec.name, len(spec.accounts), len(op.Accounts))
	}

	data := []byte{byte(op.Op)}
	for i, f := range spec.fields {
		arg := op.Args[i]
		if arg.kind != f.kind {
			return nil, fmt.Errorf("%s: arg %q has wrong type", spec.name, f.name)
		}
		switch f.kind {
		case kindU8:
			data = append(data, byte(arg.num))
		case kindU64:
			data = binary.LittleEndian.AppendUint64(data, arg.num)
		case kindPubkey:
			data = append(data, arg.key[:]...)
		}
	}

	metas := make(solana.AccountMetaSlice, len(spec.accounts))
	for i, a := range spec.accounts {
		addr := op.Accounts[i]
		if addr.IsZero() {
			return nil, fmt.Errorf("%s: account %q is zero", spec.name, a.name)
		}
		metas[i] = &solana.AccountMeta{
			PublicKey:  addr,
			IsSigner:   a.signer,
			IsWritable: a.writable,
		}
	}

	return solana.NewInstruction(programID, metas, data), nil
}

// Decoded is the result of decoding instruction data back into its
// discriminator and typed fields.
type Decoded struct {
	Op   OpCode
	Args []Value
}

// Decode inverts Encode for the data portion of an instruction. The account
// list is not part of the data and is recovered from the instruction's metas.
func Decode(v Version, data []byte) (*Decoded, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("instruction data is empty")
	}

	schema, err := SchemaFor(v)
	if err != nil {
		return nil, err
	}
	op := OpCode(data[0])
	spec, ok := schema[op]
	if !ok {
		return nil, fmt.Errorf("version %d has no operation with discriminator %d", v, op)
	}

	rest := data[1:]
	args := make([]Value, 0, len(spec.fields))
	for _, f := range spec.fields {
		switch f.kind {
		case kindU8:
			if len(rest) < 1 {
				return nil, fmt.Errorf("%s: data truncated at field %q", spec.name, f.name)
			}
			args = append(args, U8(rest[0]))
			rest = rest[1:]
		case kindU64:
			if len(rest) < 8 {
				return nil, fmt.Errorf("%s: data truncated at field %q", spec.name, f.name)
			}
			args = append(args, U64(binary.LittleEndian.Uint64(rest[:8])))
			rest = rest[8:]
		case kindPubkey:
			if len(rest) < 32 {
				return nil, fmt.Errorf("%s: data truncated at field %q", spec.name, f.name)
			}
			args = append(args, Key(solana.PublicKeyFromBytes(rest[:32])))
			rest = rest[32:]
		}
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%s: %d trailing bytes after last field", spec.name, len(rest))
	}

	return &Decoded{Op: op, Args: args}, nil
}
