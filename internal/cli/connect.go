package cli

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/tether/internal/chains"
	"github.com/mrz1836/tether/internal/connection"
	"github.com/mrz1836/tether/internal/output"
)

// disconnectTimeout bounds the teardown after the session ends.
const disconnectTimeout = 5 * time.Second

// connectCmd connects to a wallet and prints the session.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a wallet",
	Long: `Connect to a local (MetaMask) or remote (WalletConnect) wallet and print
the connected account and chain.

For WalletConnect a pairing QR code is shown on stderr; scan it with a
mobile wallet. With --watch the command keeps running and prints every
account, chain and connection change until interrupted.

Example:
  tether connect --provider metamask
  tether connect --provider wc --switch-chain 8668
  tether connect -p metamask --watch -o json`,
	RunE: runConnect,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	connectProvider    string
	connectSwitchChain uint64
	connectWatch       bool
	connectTimeout     time.Duration
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().StringVarP(&connectProvider, "provider", "p", "", "wallet provider: metamask, walletconnect")
	connectCmd.Flags().Uint64Var(&connectSwitchChain, "switch-chain", 0, "ask the wallet to switch to this chain ID after connecting")
	connectCmd.Flags().BoolVar(&connectWatch, "watch", false, "keep the session open and print state changes")
	connectCmd.Flags().DurationVar(&connectTimeout, "timeout", 0, "give up connecting after this long (0 waits for the wallet)")
	_ = connectCmd.MarkFlagRequired("provider")
}

// connectOptions are the parsed connect flags.
type connectOptions struct {
	Provider    string
	SwitchChain *uint64
	Watch       bool
	Timeout     time.Duration
}

func runConnect(cmd *cobra.Command, _ []string) error {
	opts := connectOptions{
		Provider: connectProvider,
		Watch:    connectWatch,
		Timeout:  connectTimeout,
	}
	if cmd.Flags().Changed("switch-chain") {
		id := connectSwitchChain
		opts.SwitchChain = &id
	}

	ctx, stop := signalContext(cmd)
	defer stop()
	return connectSession(ctx, commandContext(), opts)
}

// connectSession connects, optionally switches chain and watches, then
// disconnects.
func connectSession(ctx context.Context, cc *CommandContext, opts connectOptions) error {
	p, err := connection.ParseProvider(opts.Provider)
	if err != nil {
		return err
	}
	svc := cc.ConnectionService()

	connectCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc.Logger.Debug("connecting to %s", p)
	if err = svc.Connect(connectCtx, p).Err(); err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
		defer cancel()
		if derr := svc.Disconnect(dctx); derr != nil {
			cc.Logger.Error("disconnect: %v", derr)
		}
	}()

	if opts.SwitchChain != nil {
		id := *opts.SwitchChain
		if !chains.IsKnown(id) {
			output.Warn(cc.Messages, "chain %d is not a known network", id)
		}
		if err = svc.SwitchChain(ctx, id).Err(); err != nil {
			return err
		}
	}

	if err = printSession(cc.Formatter, svc.Snapshot()); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}
	return watchSession(ctx, cc, svc.Current())
}

// sessionView is the printable form of a connection snapshot.
type sessionView struct {
	Provider      string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Connected     bool   `json:"connected" yaml:"connected"`
	WalletAddress string `json:"walletAddress,omitempty" yaml:"wallet_address,omitempty"`
	ChainID       uint64 `json:"chainId,omitempty" yaml:"chain_id,omitempty"`
	ChainName     string `json:"chainName,omitempty" yaml:"chain_name,omitempty"`
}

func newSessionView(s connection.Snapshot) sessionView {
	v := sessionView{
		Provider:      string(s.Provider),
		Connected:     s.Connected,
		WalletAddress: s.WalletAddress.OrElse(""),
	}
	if id, ok := s.ChainID.Get(); ok {
		v.ChainID = id
		v.ChainName = chains.Name(id)
	}
	return v
}

func printSession(f *output.Formatter, s connection.Snapshot) error {
	v := newSessionView(s)
	if f.IsMachine() {
		return f.Print(v)
	}

	table := output.NewTable("Field", "Value")
	table.SetNoHeader(true)
	table.AddRow("Provider", v.Provider)
	table.AddRow("Connected", strconv.FormatBool(v.Connected))
	table.AddRow("Account", s.WalletAddress.String())
	if v.ChainID != 0 {
		table.AddRow("Chain", strconv.FormatUint(v.ChainID, 10)+" ("+v.ChainName+")")
	} else {
		table.AddRow("Chain", s.ChainID.String())
	}
	return table.Render(f.Writer())
}

// watchEvent is one printed state change.
type watchEvent struct {
	Time   string `json:"time" yaml:"time"`
	Stream string `json:"stream" yaml:"stream"`
	Value  string `json:"value" yaml:"value"`
}

// watchSession prints every state change of conn until ctx ends or the
// wallet disconnects.
func watchSession(ctx context.Context, cc *CommandContext, conn connection.Connection) error {
	if conn == nil {
		return nil
	}

	var mu sync.Mutex
	emit := func(stream, value string) {
		mu.Lock()
		defer mu.Unlock()
		e := watchEvent{Time: time.Now().UTC().Format(time.RFC3339), Stream: stream, Value: value}
		if cc.Formatter.IsMachine() {
			_ = cc.Formatter.Print(e)
			return
		}
		_ = cc.Formatter.Printf("%s  %-9s %s\n", e.Time, e.Stream, e.Value)
	}

	lost := make(chan struct{})
	var lostOnce sync.Once

	unsubs := []func(){
		conn.SubscribeAccountChanged().Subscribe(func(v connection.Value[string]) {
			emit("account", v.String())
		}),
		conn.SubscribeChainChanged().Subscribe(func(v connection.Value[uint64]) {
			emit("chain", v.String())
		}),
		conn.SubscribeConnectionChanged().Subscribe(func(connected bool) {
			emit("connected", strconv.FormatBool(connected))
			if !connected {
				lostOnce.Do(func() { close(lost) })
			}
		}),
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	select {
	case <-ctx.Done():
		cc.Logger.Debug("watch stopped: %v", ctx.Err())
	case <-lost:
		output.Warn(cc.Messages, "wallet disconnected")
	}
	return nil
}
