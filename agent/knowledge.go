package agent

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/BaSui01/agentcore/rag"
	"github.com/BaSui01/agentcore/types"
	"go.uber.org/zap"
)

// processCharacterKnowledge 非 RAG 模式：只处理内联文本，id 由文本派生，已存在则跳过
func (rt *Runtime) processCharacterKnowledge(ctx context.Context, sources []types.KnowledgeSource) error {
	added := 0
	for _, src := range sources {
		if !src.IsText() {
			rt.logger.Warn("file knowledge requires ragKnowledge, skipping",
				zap.String("path", src.Path), zap.String("directory", src.Directory))
			continue
		}
		id := types.StringToUUID(src.Text)
		existing, err := rt.documents.GetMemoryByID(ctx, id)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := rt.legacy.Set(ctx, types.KnowledgeItem{ID: id, Content: types.Content{Text: src.Text}}); err != nil {
			return fmt.Errorf("set knowledge %s: %w", id, err)
		}
		added++
	}
	rt.logger.Info("character knowledge processed", zap.Int("added", added), zap.Int("sources", len(sources)))
	return nil
}

// processCharacterRAGKnowledge RAG 模式：内联文本直接写入，文件与目录经 KnowledgeManager 入库。
// 单个文件失败只记录日志，不影响其余条目。
func (rt *Runtime) processCharacterRAGKnowledge(ctx context.Context, sources []types.KnowledgeSource) error {
	for _, src := range sources {
		switch {
		case src.Directory != "":
			if err := rt.processCharacterRAGDirectory(ctx, src.Directory, src.Shared); err != nil {
				return err
			}
		case src.Path != "":
			file, err := rag.ReadFile(rt.knowledgeRoot, src.Path, src.Shared)
			if err != nil {
				rt.logger.Error("read knowledge file failed", zap.String("path", src.Path), zap.Error(err))
				continue
			}
			if err := rt.ingestKnowledgeFile(ctx, file); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				rt.logger.Error("process knowledge file failed", zap.String("path", src.Path), zap.Error(err))
			}
		case src.Text != "":
			if err := rt.ingestKnowledgeText(ctx, src.Text); err != nil {
				return err
			}
		}
	}
	return nil
}

// processCharacterRAGDirectory 递归入库目录下所有支持的文件
func (rt *Runtime) processCharacterRAGDirectory(ctx context.Context, dir string, shared bool) error {
	processed, failed := 0, 0
	err := rag.WalkDirectory(ctx, rt.knowledgeRoot, dir, shared, func(file rag.File) error {
		if err := rt.ingestKnowledgeFile(ctx, file); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			rt.logger.Error("process knowledge file failed", zap.String("path", file.Path), zap.Error(err))
			return nil
		}
		processed++
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		rt.logger.Error("knowledge directory not found", zap.String("directory", dir))
		return nil
	}
	if err != nil {
		return fmt.Errorf("walk knowledge directory %s: %w", dir, err)
	}
	rt.logger.Info("knowledge directory processed",
		zap.String("directory", dir),
		zap.Bool("shared", shared),
		zap.Int("files", processed),
		zap.Int("failed", failed),
	)
	return nil
}

// ingestKnowledgeFile 主条目已存在且内容未变时跳过
func (rt *Runtime) ingestKnowledgeFile(ctx context.Context, file rag.File) error {
	id := rag.GenerateScopedID(file.Path, file.IsShared)
	existing, err := rt.knowledge.GetKnowledge(ctx, rag.Query{ID: id})
	if err != nil {
		return err
	}
	if len(existing) > 0 && existing[0].Content.Text == file.Content {
		rt.logger.Debug("knowledge file unchanged, skipping", zap.String("path", file.Path))
		return nil
	}
	return rt.knowledge.ProcessFile(ctx, file)
}

func (rt *Runtime) ingestKnowledgeText(ctx context.Context, text string) error {
	id := types.StringToUUID(text)
	existing, err := rt.knowledge.GetKnowledge(ctx, rag.Query{ID: id})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	return rt.knowledge.CreateKnowledge(ctx, types.RAGKnowledgeItem{
		ID:      id,
		AgentID: rt.agentID,
		Content: types.KnowledgeContent{
			Text:     text,
			Metadata: types.KnowledgeMetadata{Type: "direct"},
		},
	})
}
