package adapter

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/remindctl/remind/model"
)

// TelegramPerformer resolves model.SendTelegramMessage against the
// Telegram Bot HTTP API.
type TelegramPerformer struct {
	Client *resty.Client
}

// NewTelegramPerformer builds a performer with a default resty
// client. The client sets no request timeout of its own; a request
// ends only when it completes or the ctx passed to Perform is done.
func NewTelegramPerformer() TelegramPerformer {
	return TelegramPerformer{Client: resty.New()}
}

func (p TelegramPerformer) Perform(ctx context.Context, effect model.Effect) model.Event {
	eff := effect.(model.SendTelegramMessage)

	if eff.Credentials == nil {
		return model.StepFailed{TagID: eff.TagID, Error: "telegram send requires credentials"}
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", *eff.Credentials)
	resp, err := p.Client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id": eff.ChatID,
			"text":    eff.Message,
		}).
		Post(url)
	if err != nil {
		return model.StepFailed{TagID: eff.TagID, Error: fmt.Sprintf("telegram request failed: %s", err)}
	}
	if resp.IsError() {
		return model.StepFailed{TagID: eff.TagID, Error: fmt.Sprintf("telegram API returned %s: %s", resp.Status(), resp.String())}
	}
	return model.StepCompleted{TagID: eff.TagID, Value: nil}
}
