package chunker

import "paperbase/internal/ingest"

// Chunk представляет единицу текста для векторизации
type Chunk struct {
	ID       string             // Детерминированный идентификатор (hash)
	Text     string             // Текст чанка
	Source   string             // Имя исходного файла или URL
	Section  ingest.SectionKind // Вид секции (abstract, introduction, ...)
	Index    int                // Порядковый номер внутри (source, section)
	Metadata map[string]string  // Дополнительные метаданные
}

// Chunker - интерфейс для всех типов chunker'ов
type Chunker interface {
	// Chunk разбивает контент на чанки
	Chunk(content, source string) ([]Chunk, error)

	// Name возвращает название chunker'а для логирования
	Name() string
}

// Config содержит общие параметры для chunker'ов
type Config struct {
	MaxChunkSize int // Максимальный размер чанка в символах
	MinChunkSize int // Хвосты короче этого сливаются с предыдущим чанком
}
