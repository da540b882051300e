package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"forklift-assistant/internal/auth"
)

const (
	cmdStart     = "start"
	cmdAllow     = "allow"
	cmdDeny      = "deny"
	cmdAllowlist = "allowlist"
	cmdReport    = "report"
)

func isAdminCommand(cmd string) bool {
	switch cmd {
	case cmdAllow, cmdDeny, cmdAllowlist, cmdReport:
		return true
	}
	return false
}

func accessRequestText(userID int64, username, name string) string {
	return fmt.Sprintf("Usuário @%s (%s) com id %d pediu acesso ao bot.\nPara liberar: /allow %d", username, name, userID, userID)
}

func (b *Bot) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case cmdAllowlist:
		users := b.authSvc.List()
		if len(users) == 0 {
			b.send(ctx, chatID, "Lista de acesso vazia: o bot está aberto para todos.")
			return
		}
		var bld strings.Builder
		bld.WriteString("Técnicos autorizados:\n")
		for _, u := range users {
			fmt.Fprintf(&bld, "- id=%d @%s %s %s\n", u.ID, u.Username, u.FirstName, u.LastName)
		}
		b.send(ctx, chatID, bld.String())

	case cmdAllow:
		uid, ok := b.commandUserID(ctx, msg)
		if !ok {
			return
		}
		if err := b.authSvc.Upsert(auth.User{ID: uid}); err != nil {
			b.logger.Error("allowlist update failed", zap.Int64("target", uid), zap.Error(err))
			b.send(ctx, chatID, fmt.Sprintf("Erro ao liberar acesso: %v", err))
			return
		}
		b.mu.Lock()
		delete(b.notified, uid)
		b.mu.Unlock()
		b.send(ctx, chatID, fmt.Sprintf("Usuário %d liberado.", uid))
		b.send(ctx, uid, "✅ Seu acesso foi liberado. Envie /start para começar.")

	case cmdDeny:
		uid, ok := b.commandUserID(ctx, msg)
		if !ok {
			return
		}
		if err := b.authSvc.Remove(uid); err != nil {
			b.logger.Error("allowlist update failed", zap.Int64("target", uid), zap.Error(err))
			b.send(ctx, chatID, fmt.Sprintf("Erro ao remover acesso: %v", err))
			return
		}
		if err := b.tracker.Forget(ctx, uid); err != nil {
			b.logger.Warn("conversation cleanup failed", zap.Int64("target", uid), zap.Error(err))
		}
		b.send(ctx, chatID, fmt.Sprintf("Usuário %d removido da lista de acesso.", uid))

	case cmdReport:
		if b.reporter == nil {
			b.send(ctx, chatID, "Relatório não configurado.")
			return
		}
		report, err := b.reporter.Report(ctx)
		if err != nil {
			b.logger.Error("report failed", zap.Error(err))
			b.send(ctx, chatID, fmt.Sprintf("❌ Erro ao gerar relatório: %v", err))
			return
		}
		b.send(ctx, chatID, report)
	}
}

func (b *Bot) commandUserID(ctx context.Context, msg *tgbotapi.Message) (int64, bool) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		b.send(ctx, msg.Chat.ID, fmt.Sprintf("Uso: /%s <user_id>", msg.Command()))
		return 0, false
	}
	uid, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || uid <= 0 {
		b.send(ctx, msg.Chat.ID, "user_id inválido")
		return 0, false
	}
	return uid, true
}
