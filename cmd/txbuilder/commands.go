package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"liquidityTx/internal/account"
	"liquidityTx/internal/builder"
	"liquidityTx/internal/model"
)

func addSlippageFlag(cmd *cobra.Command) {
	cmd.Flags().String("max-slippage", "0", "maximum slippage in percent, 0 disables the bound")
}

func slippage(cmd *cobra.Command) string {
	value, _ := cmd.Flags().GetString("max-slippage")
	return value
}

func newCreatePoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "create-pool",
		Short:   "Create a weighted pool",
		Example: "  txbuilder create-pool --swap-fee 0.2 --asset uosmo:1000:1 --asset uion:10:1",
		RunE: func(cmd *cobra.Command, _ []string) error {
			swapFee, _ := cmd.Flags().GetString("swap-fee")
			values, _ := cmd.Flags().GetStringArray("asset")
			assets := make([]builder.CreatePoolAsset, 0, len(values))
			for _, raw := range values {
				asset, err := parsePoolAsset(raw)
				if err != nil {
					return err
				}
				assets = append(assets, asset)
			}
			return run(cmd, func(ctx context.Context, r *runtime, opts ...account.SendOption) error {
				return r.account.SendCreatePoolMsg(ctx, swapFee, assets, opts...)
			})
		},
	}
	cmd.Flags().String("swap-fee", "0", "swap fee in percent")
	cmd.Flags().StringArray("asset", nil, "initial asset as denom:amount:weight (repeatable)")
	return cmd
}

func newJoinPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join-pool <pool-id> <share-out-amount>",
		Short: "Join a pool for an exact amount of LP shares",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, r *runtime, opts ...account.SendOption) error {
				return r.account.SendJoinPoolMsg(ctx, args[0], args[1], slippage(cmd), opts...)
			})
		},
	}
	addSlippageFlag(cmd)
	return cmd
}

func newJoinSwapExternCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join-swap-extern <pool-id> <denom> <amount>",
		Short: "Join a pool with a single asset",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenIn := model.Amount{Denom: args[1], Amount: args[2]}
			return run(cmd, func(ctx context.Context, r *runtime, opts ...account.SendOption) error {
				return r.account.SendJoinSwapExternAmountInMsg(ctx, args[0], tokenIn, slippage(cmd), opts...)
			})
		},
	}
	addSlippageFlag(cmd)
	return cmd
}

func newExitPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exit-pool <pool-id> <share-in-amount>",
		Short: "Burn LP shares for the pool's assets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, r *runtime, opts ...account.SendOption) error {
				return r.account.SendExitPoolMsg(ctx, args[0], args[1], slippage(cmd), opts...)
			})
		},
	}
	addSlippageFlag(cmd)
	return cmd
}

func newSwapExactInCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap-exact-in <pool-id> <denom-in> <amount-in> <denom-out>",
		Short: "Swap an exact input amount",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenIn := model.Amount{Denom: args[1], Amount: args[2]}
			return run(cmd, func(ctx context.Context, r *runtime, opts ...account.SendOption) error {
				return r.account.SendSwapExactAmountInMsg(ctx, args[0], tokenIn, args[3], slippage(cmd), opts...)
			})
		},
	}
	addSlippageFlag(cmd)
	return cmd
}

func newSwapExactOutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap-exact-out <pool-id> <denom-in> <denom-out> <amount-out>",
		Short: "Swap for an exact output amount",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenOut := model.Amount{Denom: args[2], Amount: args[3]}
			return run(cmd, func(ctx context.Context, r *runtime, opts ...account.SendOption) error {
				return r.account.SendSwapExactAmountOutMsg(ctx, args[0], args[1], tokenOut, slippage(cmd), opts...)
			})
		},
	}
	addSlippageFlag(cmd)
	return cmd
}

func newSwapRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "swap-route <denom-in> <amount-in> <pool-id:denom-out>...",
		Short:   "Swap an exact input amount along a multi-hop route",
		Example: "  txbuilder swap-route uatom 1.5 1:uosmo 2:uion",
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenIn := model.Amount{Denom: args[0], Amount: args[1]}
			routes := make([]builder.Hop, 0, len(args)-2)
			for _, raw := range args[2:] {
				poolID, denomOut, ok := strings.Cut(raw, ":")
				if !ok || poolID == "" || denomOut == "" {
					return fmt.Errorf("invalid hop %q, want pool-id:denom-out", raw)
				}
				routes = append(routes, builder.Hop{PoolID: poolID, TokenOutDenom: denomOut})
			}
			return run(cmd, func(ctx context.Context, r *runtime, opts ...account.SendOption) error {
				return r.account.SendMultihopSwapExactAmountInMsg(ctx, routes, tokenIn, slippage(cmd), opts...)
			})
		},
	}
	addSlippageFlag(cmd)
	return cmd
}

func newLockCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "lock <duration> <denom:amount>...",
		Short:   "Lock tokens for a duration",
		Example: "  txbuilder lock 336h gamm/pool/1:10.5",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			duration, err := time.ParseDuration(args[0])
			if err != nil {
				return fmt.Errorf("parse duration: %w", err)
			}
			tokens := make([]model.Amount, 0, len(args)-1)
			for _, raw := range args[1:] {
				token, err := parseAmount(raw)
				if err != nil {
					return err
				}
				tokens = append(tokens, token)
			}
			return run(cmd, func(ctx context.Context, r *runtime, opts ...account.SendOption) error {
				return r.account.SendLockTokensMsg(ctx, duration, tokens, opts...)
			})
		},
	}
}

func newBeginUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "begin-unlock <lock-id>...",
		Short: "Start unlocking one or more locks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, r *runtime, opts ...account.SendOption) error {
				return r.account.SendBeginUnlockingMsg(ctx, args, opts...)
			})
		},
	}
}

// parseAmount splits "denom:amount" at the last colon; denoms may contain '/'.
func parseAmount(raw string) (model.Amount, error) {
	idx := strings.LastIndex(raw, ":")
	if idx <= 0 || idx == len(raw)-1 {
		return model.Amount{}, fmt.Errorf("invalid amount %q, want denom:amount", raw)
	}
	return model.Amount{Denom: raw[:idx], Amount: raw[idx+1:]}, nil
}

func parsePoolAsset(raw string) (builder.CreatePoolAsset, error) {
	idx := strings.LastIndex(raw, ":")
	if idx <= 0 || idx == len(raw)-1 {
		return builder.CreatePoolAsset{}, fmt.Errorf("invalid asset %q, want denom:amount:weight", raw)
	}
	amount, err := parseAmount(raw[:idx])
	if err != nil {
		return builder.CreatePoolAsset{}, fmt.Errorf("invalid asset %q, want denom:amount:weight", raw)
	}
	return builder.CreatePoolAsset{Denom: amount.Denom, Amount: amount.Amount, Weight: raw[idx+1:]}, nil
}
