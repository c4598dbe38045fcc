package conversation

import (
	"fmt"

	"github.com/OTFiles/CosmoSynthAI/agent/grammar"
	"github.com/OTFiles/CosmoSynthAI/types"
	"go.uber.org/zap"
)

// Delivery reports what Distribute did with one parsed message.
type Delivery struct {
	Routed  []grammar.Post
	Skipped []grammar.Post
	// Recipients maps channel to the agents that received the post.
	Recipients map[string][]string
	Notices    int
}

// Empty reports whether nothing was routed and no notice was broadcast.
func (d *Delivery) Empty() bool { return len(d.Routed) == 0 && d.Notices == 0 }

// FrameChannelPost renders a post as it appears in a transcript.
func FrameChannelPost(channel, content string) string {
	return fmt.Sprintf("[%s] %s", channel, content)
}

// FrameSystemNotice renders a broadcast system notice.
func FrameSystemNotice(speaker, notice string) string {
	return fmt.Sprintf("system notice from %s: %s", speaker, notice)
}

// Distribute routes a parsed message. Each post is checked against the
// speaker's current send permission and skipped on its own when the check
// fails. An accepted post is logged to the channel history and appended to
// the transcript of every agent holding receive on the channel, as an
// assistant entry for the speaker and a user entry for everyone else.
// System notices go to every agent regardless of channel permissions.
func (c *Conversation) Distribute(speaker string, msg *grammar.ParsedMessage) *Delivery {
	d := &Delivery{Recipients: make(map[string][]string)}
	if msg == nil {
		return d
	}

	for _, notice := range msg.SystemNotices {
		c.history.Append(SystemChannel, speaker, notice)
		framed := FrameSystemNotice(speaker, notice)
		for _, id := range c.topo.AgentIDs() {
			c.notify(id, framed)
		}
		d.Notices++
		c.logger.Info("system notice", zap.String("agent", speaker), zap.String("notice", notice))
	}

	for _, post := range msg.Posts {
		if !c.topo.CanSend(speaker, post.Channel) {
			c.logger.Warn("no send permission on channel, skipping post",
				zap.String("agent", speaker),
				zap.String("channel", post.Channel))
			d.Skipped = append(d.Skipped, post)
			c.recorder.RecordPost(post.Channel, false)
			continue
		}

		c.history.Append(post.Channel, speaker, post.Content)
		framed := FrameChannelPost(post.Channel, post.Content)

		receivers := c.topo.Receivers(post.Channel)
		speakerListed := false
		for _, id := range receivers {
			if id == speaker {
				speakerListed = true
				c.appendEntry(id, types.NewAssistantMessage(framed))
				continue
			}
			c.appendEntry(id, types.NewUserMessage(framed))
		}
		if !speakerListed {
			c.appendEntry(speaker, types.NewAssistantMessage(framed))
			receivers = append(receivers, speaker)
		}

		d.Routed = append(d.Routed, post)
		d.Recipients[post.Channel] = append(d.Recipients[post.Channel], receivers...)
		c.recorder.RecordPost(post.Channel, true)
	}
	return d
}
