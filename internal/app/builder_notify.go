package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"cryptocandles/internal/config"
	"cryptocandles/internal/gateway/notifier"
	"cryptocandles/internal/logger"
	"cryptocandles/internal/store"
	apihttp "cryptocandles/internal/transport/http/api"
	"cryptocandles/internal/types"
)

const notifyTimeout = 30 * time.Second

func buildNotifier(cfg config.TelegramConfig) notifier.TextNotifier {
	if !cfg.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.BotToken) == "" || strings.TrimSpace(cfg.ChatID) == "" {
		logger.Warnf("Telegram 推送缺少 TELEGRAM_BOT_TOKEN 或 TELEGRAM_CHAT_ID，已禁用")
		return nil
	}
	tg := notifier.NewTelegram(cfg.BotToken, cfg.ChatID)
	tg.APIURL = cfg.APIURL
	logger.Infof("✓ Telegram 推送: chat=%s", cfg.ChatID)
	return tg
}

// signalNotifier 在信号写入成功后异步推送，推送失败只记日志。
type signalNotifier struct {
	apihttp.CommunityStore
	notify notifier.TextNotifier
	wg     sync.WaitGroup
}

func newSignalNotifier(inner apihttp.CommunityStore, n notifier.TextNotifier) *signalNotifier {
	return &signalNotifier{CommunityStore: inner, notify: n}
}

func (s *signalNotifier) CreateSignal(ctx context.Context, in store.SignalInput) (types.Signal, error) {
	sig, err := s.CommunityStore.CreateSignal(ctx, in)
	if err != nil {
		return sig, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		pctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notify.SendText(pctx, notifier.SignalMessage(sig).RenderMarkdown()); err != nil {
			logger.Warnf("[notify] signal %s push failed: %v", sig.ID, err)
		}
	}()
	return sig, nil
}

// Wait 等待已发起的推送结束，关闭时调用。
func (s *signalNotifier) Wait() error {
	s.wg.Wait()
	return nil
}
