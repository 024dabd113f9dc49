package adapter

import (
	"context"
	"fmt"
	"regexp"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/remindctl/remind/model"
)

// EmailPerformer resolves model.SearchEmails by logging into an IMAP
// account, fetching the envelopes of the last 51 messages in INBOX,
// and matching the configured header field against a regex. Older
// messages are not searched. It stores the first capture group of the
// newest matching message, or an empty string if the regex matched
// but has no capture groups.
type EmailPerformer struct {
	// Host is the IMAP server address (host:port), e.g. "imap.gmail.com:993".
	Host string
}

func (p EmailPerformer) Perform(ctx context.Context, effect model.Effect) model.Event {
	eff := effect.(model.SearchEmails)

	if eff.Credentials == nil {
		return model.StepFailed{TagID: eff.TagID, Error: "email search requires credentials"}
	}

	re, err := regexp.Compile(eff.Regex)
	if err != nil {
		return model.StepFailed{TagID: eff.TagID, Error: fmt.Sprintf("invalid email search regex: %s", err)}
	}

	c, err := client.DialTLS(p.Host, nil)
	if err != nil {
		return model.StepFailed{TagID: eff.TagID, Error: fmt.Sprintf("failed to connect to %s: %s", p.Host, err)}
	}
	defer c.Logout()

	if err := c.Login(eff.Account, *eff.Credentials); err != nil {
		return model.StepFailed{TagID: eff.TagID, Error: fmt.Sprintf("imap login failed: %s", err)}
	}

	mbox, err := c.Select("INBOX", false)
	if err != nil {
		return model.StepFailed{TagID: eff.TagID, Error: fmt.Sprintf("failed to select INBOX: %s", err)}
	}
	if mbox.Messages == 0 {
		return model.StepCompleted{TagID: eff.TagID, Value: nil}
	}

	from := uint32(1)
	if mbox.Messages > 50 {
		from = mbox.Messages - 50
	}
	seqset := new(imap.SeqSet)
	seqset.AddRange(from, mbox.Messages)

	messages := make(chan *imap.Message, 50)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope}, messages)
	}()

	var match *string
	for msg := range messages {
		if msg == nil || msg.Envelope == nil {
			continue
		}
		field := envelopeField(msg.Envelope, eff.Field)
		if value, ok := matchField(re, field); ok {
			match = &value
		}
	}
	if err := <-done; err != nil {
		return model.StepFailed{TagID: eff.TagID, Error: fmt.Sprintf("imap fetch failed: %s", err)}
	}

	return model.StepCompleted{TagID: eff.TagID, Value: match}
}

// matchField reports whether re matches field and, if so, the value to
// record: the first capture group, or an empty string when re matched
// but declares no capture groups.
func matchField(re *regexp.Regexp, field string) (string, bool) {
	loc := re.FindStringSubmatch(field)
	if loc == nil {
		return "", false
	}
	if len(loc) > 1 {
		return loc[1], true
	}
	return "", true
}

func envelopeField(env *imap.Envelope, field model.EmailField) string {
	switch field {
	case model.EmailFieldSubject:
		return env.Subject
	case model.EmailFieldSender:
		return addressField(env.Sender)
	case model.EmailFieldRecipient:
		return addressField(env.To)
	default:
		return ""
	}
}

func addressField(addrs []*imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0].Address()
}
