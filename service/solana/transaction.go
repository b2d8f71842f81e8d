package solana

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Well-known Solana program IDs
var (
	// SystemProgramID is the native SOL transfer program
	SystemProgramID = solana.SystemProgramID

	// MemoProgramIDSPL is the SPL Memo program (most common)
	MemoProgramIDSPL = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

	// MemoProgramIDLegacy is the legacy memo program (v1)
	MemoProgramIDLegacy = solana.MustPublicKeyFromBase58("Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo")
)

// SystemProgramTransferInstruction is the System Program's transfer discriminator.
const SystemProgramTransferInstruction = uint32(2)

// ParseAddress parses a base58 account address.
func ParseAddress(address string) (solana.PublicKey, error) {
	if address == "" {
		return solana.PublicKey{}, fmt.Errorf("address is required")
	}
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid address %q: %w", address, err)
	}
	return pk, nil
}

// DecodeUnsignedTransaction decodes a base64 wire transaction and checks that
// payer is its fee payer and has not signed it yet.
func DecodeUnsignedTransaction(b64 string, payer solana.PublicKey) (*solana.Transaction, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("transaction is not valid base64: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	if len(tx.Message.AccountKeys) == 0 {
		return nil, fmt.Errorf("transaction has no account keys")
	}
	if feePayer := tx.Message.AccountKeys[0]; !feePayer.Equals(payer) {
		return nil, fmt.Errorf("fee payer is %s, expected %s", feePayer, payer)
	}
	if len(tx.Signatures) > 0 && tx.Signatures[0] != (solana.Signature{}) {
		return nil, fmt.Errorf("transaction is already signed by the fee payer")
	}

	return tx, nil
}

// Summary is a human-oriented view of a transaction's instructions.
type Summary struct {
	FeePayer        string   `json:"fee_payer"`
	RecentBlockhash string   `json:"recent_blockhash"`
	Programs        []string `json:"programs"`
	Instructions    int      `json:"instructions"`
	LamportsOut     uint64   `json:"lamports_out"` // system transfers funded by the fee payer
	Memo            string   `json:"memo,omitempty"`
}

// Summarize lists the programs a transaction invokes along with the SOL the fee
// payer sends through plain system transfers.
func Summarize(tx *solana.Transaction) Summary {
	accountKeys := tx.Message.AccountKeys
	s := Summary{
		RecentBlockhash: tx.Message.RecentBlockhash.String(),
		Instructions:    len(tx.Message.Instructions),
	}
	if len(accountKeys) > 0 {
		s.FeePayer = accountKeys[0].String()
	}

	seen := make(map[solana.PublicKey]struct{})
	for _, instruction := range tx.Message.Instructions {
		if int(instruction.ProgramIDIndex) >= len(accountKeys) {
			continue
		}
		programID := accountKeys[instruction.ProgramIDIndex]
		if _, ok := seen[programID]; !ok {
			seen[programID] = struct{}{}
			s.Programs = append(s.Programs, programID.String())
		}

		if programID.Equals(SystemProgramID) {
			if amount, from, err := parseSystemTransfer(instruction, accountKeys); err == nil && from == 0 {
				s.LamportsOut += amount
			}
		}

		if programID.Equals(MemoProgramIDSPL) || programID.Equals(MemoProgramIDLegacy) {
			if memo := parseMemo(instruction.Data); memo != "" {
				s.Memo = memo
			}
		}
	}

	return s
}

// parseSystemTransfer extracts the amount and source account index from a System Program Transfer instruction.
func parseSystemTransfer(instruction solana.CompiledInstruction, accountKeys []solana.PublicKey) (uint64, uint16, error) {
	// [0..4]  = instruction type (u32, 2 for Transfer)
	// [4..12] = lamports (u64)
	if len(instruction.Data) < 12 {
		return 0, 0, fmt.Errorf("instruction data too short: %d bytes", len(instruction.Data))
	}

	instructionType := binary.LittleEndian.Uint32(instruction.Data[0:4])
	if instructionType != SystemProgramTransferInstruction {
		return 0, 0, fmt.Errorf("not a transfer instruction: type %d", instructionType)
	}

	if len(instruction.Accounts) < 2 || int(instruction.Accounts[0]) >= len(accountKeys) {
		return 0, 0, fmt.Errorf("transfer missing accounts")
	}

	return binary.LittleEndian.Uint64(instruction.Data[4:12]), instruction.Accounts[0], nil
}

// parseMemo extracts the memo text from a Memo Program instruction.
func parseMemo(data []byte) string {
	if !utf8.Valid(data) {
		return ""
	}
	return string(data)
}
