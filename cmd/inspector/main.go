// Command inspector prints the EIP-712 payload and digest of a GRVT
// operation read from a JSON file, and the recovered signer when the
// operation carries a signature.
//
//	inspector order --env testnet order.json
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/haeminmoon/grvtgate/internal/config"
	"github.com/haeminmoon/grvtgate/internal/market"
	"github.com/haeminmoon/grvtgate/internal/model"
	"github.com/haeminmoon/grvtgate/internal/signer"
	"github.com/spf13/cobra"
)

var envName string

var rootCmd = &cobra.Command{
	Use:          "inspector",
	Short:        "Print the EIP-712 payload and digest of a GRVT operation",
	SilenceUsage: true,
}

func kindCmd(kind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " [file]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return inspect(cmd.OutOrStdout(), kind, path)
		},
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "environment (defaults to grvt.env from config)")
	rootCmd.AddCommand(
		kindCmd("order", "Inspect a create_order payload"),
		kindCmd("transfer", "Inspect a transfer payload"),
		kindCmd("withdrawal", "Inspect a withdrawal payload"),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func inspect(w io.Writer, kind, path string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if envName != "" {
		cfg.Grvt.Env = envName
	}
	_, envCfg, err := cfg.EnvConfig()
	if err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	raw, err := readInput(path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	data, sig, err := typedData(kind, raw, cfg, envCfg.ChainID)
	if err != nil {
		return fmt.Errorf("build typed data: %w", err)
	}
	digest, err := signer.TypedDataHash(data)
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}

	out := json.NewEncoder(w)
	out.SetIndent("", "  ")
	if err := out.Encode(data); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	fmt.Fprintf(w, "\nchain_id: %d\ndigest:   %s\n", envCfg.ChainID, hexutil.Encode(digest))

	if sig.R == "" {
		return nil
	}
	recovered, err := signer.RecoverSigner(data, sig)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	fmt.Fprintf(w, "signer:   %s\n", recovered.Hex())
	if err := signer.VerifySignature(data, sig); err != nil {
		return fmt.Errorf("signature mismatch: %w", err)
	}
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func typedData(kind string, raw []byte, cfg *config.Config, chainID int64) (apitypes.TypedData, model.Signature, error) {
	switch kind {
	case "order":
		var order model.Order
		if err := json.Unmarshal(raw, &order); err != nil {
			return apitypes.TypedData{}, model.Signature{}, err
		}
		registry, err := market.NewInstrumentRegistryFromConfig(cfg.Instruments)
		if err != nil {
			return apitypes.TypedData{}, model.Signature{}, err
		}
		data, err := signer.OrderTypedData(&order, registry.Instruments(), chainID)
		return data, order.Signature, err
	case "transfer":
		var t model.Transfer
		if err := json.Unmarshal(raw, &t); err != nil {
			return apitypes.TypedData{}, model.Signature{}, err
		}
		data, err := signer.TransferTypedData(&t, chainID)
		return data, t.Signature, err
	case "withdrawal":
		var w model.Withdrawal
		if err := json.Unmarshal(raw, &w); err != nil {
			return apitypes.TypedData{}, model.Signature{}, err
		}
		data, err := signer.WithdrawalTypedData(&w, chainID)
		return data, w.Signature, err
	default:
		return apitypes.TypedData{}, model.Signature{}, fmt.Errorf("unknown kind %q", kind)
	}
}
