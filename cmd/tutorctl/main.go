// Command tutorctl is a text console for the voice tutor. It opens a realtime
// session in text mode, answers the model's tool calls against the local
// catalog, and prints what the video player would do.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"video-tutor/internal/platform/config"
	"video-tutor/internal/platform/logger"
	"video-tutor/internal/realtime"
	"video-tutor/internal/toolcall"
	"video-tutor/internal/tutor"
)

func main() {
	_ = config.Load()

	// stdout belongs to the conversation.
	log := logger.NewWithWriter(os.Stderr, config.GetEnv("LOG_LEVEL", "warn"), "text")

	apiKey := config.GetEnv("OPENAI_API_KEY", "")
	if apiKey == "" {
		log.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	assistant, err := config.LoadAssistant(config.GetEnv("ASSISTANT_CONFIG", "assistant.yaml"))
	if err != nil {
		log.Error("load assistant config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sources []tutor.Source
	if u := config.GetEnv("VIDEO_DATA_API_URL", ""); u != "" {
		sources = append(sources, tutor.NewHTTPSource(u, config.GetEnvDuration("CATALOG_FETCH_TIMEOUT", tutor.DefaultFetchTimeout)))
	}
	sources = append(sources, tutor.FileSource{Path: config.GetEnv("VIDEOS_FILE", "data/videos.json")})
	doc, _ := tutor.FallbackSource{Sources: sources, Log: log}.Load(ctx)
	svc := tutor.NewServiceFromDocument(doc, nil)
	fmt.Printf("Katalog: %d video\n", svc.Catalog().Len())

	dispatcher := toolcall.NewDispatcher(svc, log, toolcall.WithPlayer(toolcall.PlayerFunc(printCommand)))

	client := realtime.New(apiKey, realtime.WithModel(assistant.Model))
	sess, err := client.Connect(ctx, realtime.SessionConfig{
		Instructions:       assistant.Instructions,
		Voice:              assistant.Voice,
		TranscriptionModel: assistant.TranscriptionModel,
		Tools:              toolcall.Definitions(),
		TextOnly:           true,
	})
	if err != nil {
		log.Error("connect", "error", err)
		os.Exit(1)
	}
	defer sess.Close()

	sess.OnToolCall(dispatcher.Handle)
	sess.OnError(func(err error) { fmt.Fprintf(os.Stderr, "! %v\n", err) })

	go func() {
		for t := range sess.Transcripts() {
			if t.Role == realtime.RoleAssistant {
				fmt.Printf("tutor> %s\n", t.Text)
			}
		}
	}()
	go func() {
		for range sess.Audio() {
		}
	}()

	if err := sess.Greet(assistant.Greeting); err != nil {
		log.Error("greet", "error", err)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sess.Done():
			if err := sess.Err(); err != nil {
				log.Error("session ended", "error", err)
			}
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := sess.SendText(line); err != nil {
				log.Error("send", "error", err)
				return
			}
		}
	}
}

func printCommand(_ context.Context, cmd toolcall.Command) {
	switch cmd.Kind {
	case toolcall.CommandShow:
		fmt.Printf("[player] tampilkan %s %q dari %s\n", cmd.Video.ID, cmd.Video.Title, tutor.FormatClock(cmd.Timestamp))
	case toolcall.CommandSeek:
		fmt.Printf("[player] lompat ke %s\n", tutor.FormatClock(cmd.Timestamp))
	}
}
