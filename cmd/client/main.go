package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fitroom/internal/config"
	"fitroom/internal/model"
	"fitroom/internal/service"
	"fitroom/pkg/logger"
)

func main() {
	cmd := flag.String("cmd", "status", "Command: status|upload|remove|chat|clear|wardrobe|add|rm|tryon")
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	serverFlag := flag.String("server", "", "Override backend base URL (e.g. http://192.168.1.100:5000)")
	file := flag.String("file", "", "Image path (for upload/add)")
	garmentType := flag.String("type", "", "Garment type upper|lower (for add)")
	itemID := flag.String("id", "", "Wardrobe item ID (for rm/tryon)")
	yes := flag.Bool("yes", false, "Skip removal confirmation")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *serverFlag != "" {
		cfg.Backend.DevURL = *serverFlag
		cfg.Backend.ProdURL = *serverFlag
	}

	// 日志写到 stderr，避免和命令输出混在一起
	if err := logger.InitWithOutput(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := service.NewApp(cfg)
	defer app.Close()
	app.Start(ctx)

	switch *cmd {
	case "status":
		err = status(app)
	case "upload":
		err = upload(ctx, app, *file)
	case "remove":
		err = app.Images.Remove(ctx)
		if err == nil {
			fmt.Println("Model image removed")
		}
	case "chat":
		err = chat(ctx, app, os.Stdin)
	case "clear":
		app.Chat.Clear(ctx)
		fmt.Println("Conversation cleared")
	case "wardrobe":
		err = listWardrobe(ctx, app)
	case "add":
		err = addGarment(ctx, app, *file, *garmentType)
	case "rm":
		err = removeGarment(ctx, app, *itemID, *yes)
	case "tryon":
		err = tryOn(ctx, app, *itemID)
	default:
		err = fmt.Errorf("unknown command %q", *cmd)
	}

	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func status(app *service.App) error {
	fmt.Println("Backend:", app.Client.BaseURL())
	img := app.Images.Current()
	if img == nil {
		fmt.Println("Model image: none (upload one to unlock chat and try-on)")
		return nil
	}
	where := "local"
	if img.IsRemote {
		where = "remote"
	}
	fmt.Printf("Model image: %s (%s)\n", img.URI, where)
	return nil
}

func upload(ctx context.Context, app *service.App, path string) error {
	if path == "" {
		return errors.New("--file required")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	img, err := app.Images.Upload(ctx, f)
	if err != nil {
		return err
	}
	fmt.Println("Model uploaded successfully:", img.URI)
	return nil
}

func chat(ctx context.Context, app *service.App, in io.Reader) error {
	if err := app.EnterChat(ctx); err != nil {
		return err
	}
	defer app.Chat.Leave()

	for _, msg := range app.Chat.Messages() {
		printMessage(msg)
	}
	fmt.Println("Ask the stylist anything. /clear starts over, /quit exits.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "/quit":
			return nil
		case "/clear":
			app.Chat.Clear(ctx)
			fmt.Println("Conversation cleared")
			continue
		}

		reply, err := app.Chat.Send(ctx, line)
		if reply != nil {
			printMessage(*reply)
		}
		if err != nil && !errors.Is(err, service.ErrChatFailed) {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func printMessage(msg model.ChatMessage) {
	switch msg.Role {
	case model.RoleUser:
		fmt.Println("you:", msg.Content)
	case model.RoleAssistant:
		fmt.Println("stylist:", msg.Content)
	default:
		fmt.Println("!", msg.Content)
	}
}

func listWardrobe(ctx context.Context, app *service.App) error {
	items, err := app.EnterTryOn(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("Wardrobe is empty")
		return nil
	}
	for _, item := range items {
		fmt.Printf("%-40s %-6s %s\n", item.ID, item.Type, item.URI)
	}
	return nil
}

func addGarment(ctx context.Context, app *service.App, path, kind string) error {
	if path == "" {
		return errors.New("--file required")
	}
	if _, err := app.EnterTryOn(ctx); err != nil {
		return err
	}
	item, err := app.Wardrobe.AddLocal(path, model.GarmentType(kind))
	if err != nil {
		return err
	}
	fmt.Println("Added", item.ID)
	return nil
}

func removeGarment(ctx context.Context, app *service.App, id string, yes bool) error {
	if id == "" {
		return errors.New("--id required")
	}
	if _, err := app.EnterTryOn(ctx); err != nil {
		return err
	}

	confirm := func(item model.WardrobeItem) bool {
		if yes {
			return true
		}
		fmt.Printf("Remove %s (%s)? [y/N] ", item.ID, item.Type)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}

	if err := app.Wardrobe.Remove(id, confirm); err != nil {
		return err
	}
	fmt.Println("Removed", id)
	return nil
}

func tryOn(ctx context.Context, app *service.App, id string) error {
	if id == "" {
		return errors.New("--id required")
	}
	items, err := app.EnterTryOn(ctx)
	if err != nil {
		return err
	}
	defer app.Wardrobe.Leave()

	for _, item := range items {
		if item.ID != id {
			continue
		}
		processed, err := app.Wardrobe.TryOn(ctx, item)
		if err != nil {
			return err
		}
		fmt.Println("Result:", processed.URL)
		return nil
	}
	return fmt.Errorf("%w: %s", service.ErrItemNotFound, id)
}
