package app

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

// Run запускает интерактивный режим: строка = путь/URL для индексации
// или вопрос к проиндексированным документам
func (a *App) Run(ctx context.Context) error {
	log.Println("Application started")
	log.Println("Enter a file path or URL to ingest, or a question to ask. Ctrl+C to exit.")

	scanner := bufio.NewScanner(os.Stdin)

	// Увеличим буфер, если пути/строки будут длинные
	const maxLineSize = 1024 * 1024
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	for {
		select {
		case <-ctx.Done():
			log.Println("Shutting down application")
			return nil
		default:
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("stdin error: %w", err)
				}
				// EOF
				log.Println("stdin closed")
				return nil
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			a.handleLine(ctx, line)
		}
	}
}

// handleLine решает, что это: документ для индексации или вопрос
func (a *App) handleLine(ctx context.Context, line string) {
	if isURL(line) {
		a.IngestAll(ctx, []string{line})
		return
	}

	if info, err := os.Stat(line); err == nil && !info.IsDir() {
		a.IngestAll(ctx, []string{line})
		return
	}

	// Всё остальное считаем вопросом
	log.Printf("🔍 Searching for: %s", line)

	answer, results, err := a.Answer(ctx, line)
	if err != nil {
		log.Printf("❌ Query error: %v", err)
		return
	}

	log.Printf("Found %d relevant chunks:", len(results))
	for i, r := range results {
		log.Printf("   %d. %s / %s (similarity: %.2f)", i+1, r.Source, r.Section, r.Similarity)
	}

	log.Printf("\n🤖 %s\n", answer)
}
