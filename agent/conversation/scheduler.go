package conversation

import (
	"go.uber.org/zap"
)

// Tier is the priority class of a forced speaker.
type Tier string

const (
	// TierA tasks are administrative follow-ups and always run first.
	TierA Tier = "A"
	// TierB tasks are peer-initiated calls.
	TierB Tier = "B"
)

// PriorityTask forces an agent to speak ahead of random selection.
type PriorityTask struct {
	Tier   Tier
	Agent  string
	Reason string
}

// priorityQueue keeps one FIFO list per tier.
type priorityQueue struct {
	a []PriorityTask
	b []PriorityTask
}

func (q *priorityQueue) push(t PriorityTask) {
	if t.Tier == TierA {
		q.a = append(q.a, t)
		return
	}
	t.Tier = TierB
	q.b = append(q.b, t)
}

func (q *priorityQueue) pop() (PriorityTask, bool) {
	switch {
	case len(q.a) > 0:
		t := q.a[0]
		q.a = q.a[1:]
		return t, true
	case len(q.b) > 0:
		t := q.b[0]
		q.b = q.b[1:]
		return t, true
	}
	return PriorityTask{}, false
}

func (q *priorityQueue) Len() int { return len(q.a) + len(q.b) }

// tasks returns pending tasks in service order.
func (q *priorityQueue) tasks() []PriorityTask {
	out := make([]PriorityTask, 0, q.Len())
	out = append(out, q.a...)
	return append(out, q.b...)
}

func (q *priorityQueue) reset() {
	q.a = nil
	q.b = nil
}

// Enqueue adds a forced speaker.
func (c *Conversation) Enqueue(agent string, tier Tier, reason string) {
	c.queue.push(PriorityTask{Tier: tier, Agent: agent, Reason: reason})
	c.recorder.SetQueueDepth(c.queue.Len())
}

// PendingTasks returns queued tasks in the order they will be served.
func (c *Conversation) PendingTasks() []PriorityTask { return c.queue.tasks() }

// NextSpeaker picks who acts next: the head of the priority queue if any,
// otherwise a uniformly random eligible agent other than the previous
// speaker. When the previous speaker is the only eligible agent it is
// picked again. Only random picks are recorded as the last speaker; a
// forced pick leaves it unchanged. ok is false only when no agent is
// eligible at all.
func (c *Conversation) NextSpeaker() (speaker string, ok bool) {
	for {
		task, found := c.queue.pop()
		if !found {
			break
		}
		c.recorder.SetQueueDepth(c.queue.Len())
		if !c.topo.HasAgent(task.Agent) {
			c.logger.Warn("dropping priority task for unknown agent",
				zap.String("agent", task.Agent),
				zap.String("reason", task.Reason))
			continue
		}
		c.logger.Info("priority speaker",
			zap.String("agent", task.Agent),
			zap.String("tier", string(task.Tier)),
			zap.String("reason", task.Reason))
		return task.Agent, true
	}

	eligible := c.EligibleSpeakers()
	if len(eligible) == 0 {
		return "", false
	}
	pool := make([]string, 0, len(eligible))
	for _, id := range eligible {
		if id != c.lastSpeaker {
			pool = append(pool, id)
		}
	}
	if len(pool) == 0 {
		pool = eligible
	}
	speaker = pool[c.rng.Intn(len(pool))]
	c.lastSpeaker = speaker
	return speaker, true
}

// EligibleSpeakers returns, sorted, the agents that are not excluded and
// hold send on at least one channel.
func (c *Conversation) EligibleSpeakers() []string {
	var out []string
	for _, id := range c.topo.AgentIDs() {
		if c.topo.IsExcluded(id) || !c.topo.CanSpeak(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
