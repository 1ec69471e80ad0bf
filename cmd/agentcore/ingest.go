package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// =============================================================================
// 📚 ingest 命令
// =============================================================================

// runIngest 导入角色卡中声明的知识，RAG 模式下再清理知识根目录中已删除的文件
func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	cfg, configPath, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, configPath, false)
	if err != nil {
		return err
	}
	defer a.close()

	rt := a.runtime
	if err := rt.Initialize(ctx); err != nil {
		return fmt.Errorf("ingest knowledge: %w", err)
	}

	if !rt.RAGEnabled() {
		fmt.Printf("Imported %d knowledge source(s) for %s\n", len(rt.Character().Knowledge), rt.Character().Name)
		return nil
	}

	km := rt.KnowledgeManager()
	removed, err := km.CleanupDeletedKnowledgeFiles(ctx)
	if err != nil {
		return fmt.Errorf("cleanup knowledge: %w", err)
	}
	items, err := km.ListAllKnowledge(ctx, rt.AgentID())
	if err != nil {
		return fmt.Errorf("list knowledge: %w", err)
	}
	var documents, chunks, shared int
	for _, it := range items {
		meta := it.Content.Metadata
		switch {
		case meta.IsChunk:
			chunks++
		default:
			documents++
		}
		if meta.IsShared {
			shared++
		}
	}
	fmt.Printf("Knowledge for %s: %d document(s), %d chunk(s), %d shared, %d removed\n",
		rt.Character().Name, documents, chunks, shared, removed)
	return nil
}
