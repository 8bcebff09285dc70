package main

import (
	"fmt"
	"strings"
	"time"

	"chatdesk-backend/internal/dashboard"
	"chatdesk-backend/internal/models"

	"github.com/fatih/color"
)

var (
	titleColor   = color.New(color.FgMagenta, color.Bold)
	userColor    = color.New(color.FgWhite)
	aiColor      = color.New(color.FgCyan)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	mutedColor   = color.New(color.FgHiBlack)
	selectedMark = color.New(color.FgGreen, color.Bold).Sprint("*")
)

func title(text string, args ...any) {
	titleColor.Printf("== "+text+" ==\n", args...)
}

func success(text string, args ...any) {
	okColor.Printf(text+"\n", args...)
}

func warn(text string, args ...any) {
	warnColor.Printf(text+"\n", args...)
}

func printChats(chats []models.Chat, selected string) {
	if len(chats) == 0 {
		mutedColor.Println("no chats")
		return
	}
	for _, chat := range chats {
		mark := " "
		if chat.ID.String() == selected {
			mark = selectedMark
		}
		fmt.Printf("%s %s  %s  %s\n", mark, chat.ID, mutedColor.Sprint(chat.CreatedAt.Local().Format(time.DateTime)), chat.Title)
	}
}

func printMessage(m models.Message) {
	stamp := mutedColor.Sprintf("[%s]", m.CreatedAt.Local().Format(time.TimeOnly))
	if m.IsAI {
		fmt.Printf("%s %s\n", stamp, aiColor.Sprintf("AI: %s", m.Content))
		return
	}
	fmt.Printf("%s %s\n", stamp, userColor.Sprintf("You: %s", m.Content))
}

func printSettings(settings []models.Setting) {
	if len(settings) == 0 {
		mutedColor.Println("no settings")
		return
	}
	for _, s := range settings {
		fmt.Printf("%s  %-24s %s\n", s.ID, s.KeyName, maskValue(s.KeyValue))
	}
}

// maskValue hides all but the last four characters of a secret
func maskValue(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

func printStats(stats *dashboard.Stats) {
	fmt.Printf("users    %d\n", stats.TotalUsers)
	fmt.Printf("chats    %d\n", stats.TotalChats)
	fmt.Printf("messages %d\n", stats.TotalMessages)
	fmt.Printf("active   %d (24h)\n", stats.ActiveUsers)
}

func printSeries(name string, points []dashboard.Point) {
	titleColor.Println(name)
	peak := 0
	for _, p := range points {
		if p.Value > peak {
			peak = p.Value
		}
	}
	for _, p := range points {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("#", p.Value*30/peak)
		}
		fmt.Printf("%10s %4d %s\n", p.Name, p.Value, aiColor.Sprint(bar))
	}
}
