package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgnsrekt/trello-player/internal/proxy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Serve the CORS proxy",
	Long: paragraph(fmt.Sprintf("\n%s the proxy that downloads Trello attachments on behalf of the player. "+
		"ALLOWED_ORIGIN_DOMAIN, PROXY_LISTEN and PROXY_TIMEOUT override the config file.", keyword("Serve"))),
	Args:        cobra.NoArgs,
	Annotations: map[string]string{logAnnotation: logToStderr},
	RunE: func(cmd *cobra.Command, _ []string) error {
		pc, err := proxy.Config{
			Listen:         cfg.Proxy.Listen,
			AllowedOrigins: cfg.Proxy.AllowedOrigins,
			Timeout:        cfg.Player.FetchTimeout,
		}.WithEnv()
		if err != nil {
			return fmt.Errorf("error parsing proxy environment: %w", err)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return proxy.New(pc).Run(ctx)
	},
}

func init() {
	proxyCmd.Flags().String("listen", "", "address to listen on")
	_ = viper.BindPFlag("proxy.listen", proxyCmd.Flags().Lookup("listen"))
}
