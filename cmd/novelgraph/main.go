package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/novelgraph/novelgraph/internal/timing"
	"github.com/novelgraph/novelgraph/internal/util"
	"github.com/novelgraph/novelgraph/pkg/ai"
	oai "github.com/novelgraph/novelgraph/pkg/ai/ollama"
	gai "github.com/novelgraph/novelgraph/pkg/ai/openai"
	"github.com/novelgraph/novelgraph/pkg/export"
	"github.com/novelgraph/novelgraph/pkg/graph"
	"github.com/novelgraph/novelgraph/pkg/logger"
	"github.com/novelgraph/novelgraph/pkg/logger/console"
	"github.com/novelgraph/novelgraph/pkg/novel"
)

func main() {
	util.LoadEnv()

	input := flag.String("input", "", "path to the novel text file")
	author := flag.String("author", "", "author of the book")
	book := flag.String("book", "", "title of the book")
	chunkSize := flag.Int("chunk-size", 4000, "maximum chunk size in characters")
	jsonOut := flag.String("json", "graph.json", "output path for the graph JSON document")
	csvDir := flag.String("csv", "", "output directory for nodes.csv and relationships.csv (optional)")
	apiKey := flag.String("api-key", "", "language model API key (defaults to AI_CHAT_KEY)")
	cypher := flag.Bool("cypher", false, "print Memgraph import commands for the JSON output")
	flag.Parse()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	if *input == "" || *author == "" || *book == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	key := *apiKey
	if key == "" {
		key = util.GetEnv("AI_CHAT_KEY")
	}

	var aiClient ai.GraphAIClient
	switch util.GetEnvString("AI_ADAPTER", "openai") {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ExtractionModel:       util.GetEnv("AI_EXTRACT_MODEL"),
			BaseURL:               util.GetEnv("AI_CHAT_URL"),
			ApiKey:                key,
			MaxConcurrentRequests: int64(util.GetEnvInt("AI_MAX_CONCURRENT", 4)),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		aiClient = client
	default:
		aiClient = gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),
			ChatURL:         util.GetEnv("AI_CHAT_URL"),
			ChatKey:         key,
		})
	}

	text, err := os.ReadFile(*input)
	if err != nil {
		logger.Fatal("Could not read input file", "path", *input, "err", err)
	}

	novelData, err := novel.Chunk(string(text), *author, *book, *chunkSize)
	if err != nil {
		logger.Fatal("Could not chunk input", "err", err)
	}
	logger.Info("[Main] Chunked input", "chapters", len(novelData.Chapters), "chunks", novelData.ChunkCount())

	client := graph.NewGraphClient(graph.NewGraphClientParams{
		ParallelExtractions: util.GetEnvInt("PARALLEL_EXTRACTIONS", 4),
		MaxRetries:          util.GetEnvInt("MAX_RETRIES", 3),
	})

	extractDone := timing.Stage("extract")
	result, err := client.ProcessNovel(ctx, novelData, aiClient)
	extractDone()
	if err != nil {
		logger.Fatal("Could not process novel", "err", err)
	}
	for _, skipped := range result.Skipped {
		logger.Warn("[Main] Chunk skipped", "chunk", skipped.ChunkID, "err", skipped.Err)
	}

	exportDone := timing.Stage("export")
	if err := export.WriteJSONFile(*jsonOut, result.Graph); err != nil {
		logger.Fatal("Could not write JSON output", "err", err)
	}
	logger.Info("[Main] Wrote graph JSON", "path", *jsonOut,
		"nodes", result.Graph.Metadata.TotalNodes,
		"relationships", result.Graph.Metadata.TotalRelationships)

	if *csvDir != "" {
		if err := export.WriteCSVFiles(*csvDir, result.Graph); err != nil {
			logger.Fatal("Could not write CSV output", "err", err)
		}
		logger.Info("[Main] Wrote graph CSV", "dir", *csvDir)
	}
	exportDone()

	metrics := aiClient.GetMetrics()
	logger.Info("[Main] Model usage", "requests", metrics.Requests,
		"input_tokens", metrics.InputTokens, "output_tokens", metrics.OutputTokens)

	if *cypher {
		fmt.Println(export.MemgraphImportCommands(*jsonOut))
	}
}
