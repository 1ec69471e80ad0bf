package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/plugins/sei"
)

// =============================================================================
// 🏥 health 命令
// =============================================================================

// healthCheck 单项检查结果
type healthCheck struct {
	Name string
	Err  error
}

// runHealthCheck 检查存储、缓存与链 RPC，任一失败时返回错误
func runHealthCheck(args []string) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 10*time.Second, "Overall timeout")
	cfg, configPath, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	a, err := newApp(ctx, cfg, configPath, false)
	if err != nil {
		return err
	}
	defer a.close()

	checks := a.healthChecks(ctx)
	failed := 0
	for _, c := range checks {
		if c.Err != nil {
			failed++
			fmt.Printf("%-8s FAIL %v\n", c.Name, c.Err)
			continue
		}
		fmt.Printf("%-8s OK\n", c.Name)
	}
	if failed > 0 {
		return fmt.Errorf("%d health check(s) failed", failed)
	}
	return nil
}

func (a *app) healthChecks(ctx context.Context) []healthCheck {
	var checks []healthCheck

	if a.pool != nil {
		checks = append(checks, healthCheck{Name: "database", Err: a.pool.Ping(ctx)})
	}

	key := "health:" + a.runtime.AgentID().String()
	err := a.cache.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), time.Minute)
	if err == nil {
		_, err = a.cache.Get(ctx, key)
		_ = a.cache.Delete(ctx, key)
	}
	checks = append(checks, healthCheck{Name: "cache", Err: err})

	if a.cfg.Chain.Enabled() {
		checks = append(checks, healthCheck{Name: "chain", Err: a.checkChain(ctx)})
	}
	return checks
}

// checkChain 读取配置钱包的原生余额，验证 RPC 可达
func (a *app) checkChain(ctx context.Context) error {
	rt := a.runtime
	address, err := sei.ResolveAddress(rt.GetSetting)
	if err != nil {
		return err
	}
	network := rt.GetSetting(sei.SettingNetwork)
	if network == "" {
		network = sei.ChainMainnet
	}
	rpcURLs := map[string]string{}
	if url := rt.GetSetting(sei.SettingRPCURL); url != "" {
		rpcURLs[network] = url
	}
	wallet, err := sei.NewWallet(sei.WalletConfig{
		Address:      address,
		DefaultChain: network,
		RPCURLs:      rpcURLs,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}
	defer wallet.Close()

	balance, err := wallet.GetBalance(ctx, sei.GetBalanceParams{})
	if err != nil {
		return err
	}
	a.logger.Info("chain reachable",
		zap.String("chain", balance.Chain),
		zap.String("address", balance.Address.Hex()),
		zap.String("balance", balance.Amount+" "+balance.Token))
	return nil
}
