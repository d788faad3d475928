// Package supervisor runs one polling task per enabled agent and owns
// their lifecycle: start, stop, restart, and the idle checker.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/botherd/botherd/internal/completion"
	"github.com/botherd/botherd/internal/config"
	"github.com/botherd/botherd/internal/events"
	"github.com/botherd/botherd/internal/memory"
	"github.com/botherd/botherd/internal/store"
	"github.com/botherd/botherd/internal/transport"
	"github.com/botherd/botherd/internal/trigger"
)

// agentTask is one running agent: its transport and poll loop handle.
type agentTask struct {
	agent     store.Agent
	transport transport.Transport
	cancel    context.CancelFunc
	done      chan struct{}
}

// Supervisor owns all agent tasks. Safe for concurrent use.
type Supervisor struct {
	cfg       config.Config
	store     *store.Store
	completer completion.Completer
	images    completion.ImageGenerator
	publisher *events.Publisher
	extractor *memory.Extractor
	snippets  *memory.Snippets
	activity  *activityMap
	logger    *slog.Logger

	mu        sync.Mutex
	tasks     map[string]*agentTask
	rng       *rand.Rand
	running   bool
	startedAt time.Time
	idleStop  context.CancelFunc
	idleDone  chan struct{}
}

// New wires a supervisor. publisher may be nil when the Kafka mirror is
// off.
func New(cfg config.Config, st *store.Store, completer completion.Completer, images completion.ImageGenerator, publisher *events.Publisher) *Supervisor {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Supervisor{
		cfg:       cfg,
		store:     st,
		completer: completer,
		images:    images,
		publisher: publisher,
		extractor: memory.NewExtractor(st, completer, cfg.Completion.Model),
		snippets:  memory.NewSnippets(st, rand.New(rand.NewSource(time.Now().UnixNano()+1))),
		activity:  newActivityMap(),
		logger:    slog.With("component", "supervisor"),
		tasks:     make(map[string]*agentTask),
		rng:       rng,
	}
}

// Start launches every enabled agent plus the idle checker. Starting a
// running supervisor logs a warning and changes nothing. A store
// failure here is fatal: a supervisor that cannot see its agents must
// not come up half-blind.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("supervisor already running")
		return nil
	}
	s.running = true
	s.startedAt = time.Now().UTC()
	idleCtx, idleStop := context.WithCancel(ctx)
	idleDone := make(chan struct{})
	s.idleStop = idleStop
	s.idleDone = idleDone
	s.mu.Unlock()

	agents, err := s.store.ListEnabledAgents()
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.idleStop, s.idleDone = nil, nil
		s.mu.Unlock()
		idleStop()
		close(idleDone)
		return fmt.Errorf("list agents: %w", err)
	}
	for _, agent := range agents {
		if err := s.StartAgent(ctx, agent.ID); err != nil {
			s.logger.Error("agent failed to start", "agent", agent.Name, "error", err)
		}
	}
	go func() {
		defer close(idleDone)
		s.runIdleChecker(idleCtx)
	}()
	s.logger.Info("supervisor started", "agents", len(agents))
	return nil
}

// StartAgent brings one agent online. Starting a running agent logs a
// warning and changes nothing.
func (s *Supervisor) StartAgent(ctx context.Context, agentID string) error {
	agent, err := s.store.GetAgent(agentID)
	if err != nil {
		return fmt.Errorf("load agent: %w", err)
	}

	s.mu.Lock()
	if _, running := s.tasks[agent.ID]; running {
		s.mu.Unlock()
		s.logger.Warn("agent already running", "agent", agent.Name)
		return nil
	}
	s.mu.Unlock()

	tr, err := s.newTransport(agent)
	if err != nil {
		return fmt.Errorf("transport for %s: %w", agent.Name, err)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	task := &agentTask{
		agent:     agent,
		transport: tr,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	s.tasks[agent.ID] = task
	s.mu.Unlock()

	go func() {
		defer close(task.done)
		s.runAgent(taskCtx, task)
	}()

	s.store.LogActivity("agent_started", agent.ID, "", fmt.Sprintf("agent %s started", agent.Name))
	s.publisher.Publish(ctx, events.Event{Type: "agent_started", AgentID: agent.ID,
		Description: agent.Name})
	s.logger.Info("agent started", "agent", agent.Name, "transport", tr.Name())
	return nil
}

// StopAgent cancels an agent's poll loop and waits for it to drain.
func (s *Supervisor) StopAgent(agentID string) error {
	s.mu.Lock()
	task, ok := s.tasks[agentID]
	if ok {
		delete(s.tasks, agentID)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("agent %s is not running", agentID)
	}
	task.cancel()
	<-task.done
	s.store.LogActivity("agent_stopped", agentID, "", fmt.Sprintf("agent %s stopped", task.agent.Name))
	s.logger.Info("agent stopped", "agent", task.agent.Name)
	return nil
}

// RestartAgent bounces one agent, picking up fresh config and
// credentials.
func (s *Supervisor) RestartAgent(ctx context.Context, agentID string) error {
	if err := s.StopAgent(agentID); err != nil {
		return err
	}
	return s.StartAgent(ctx, agentID)
}

// Stop shuts down the idle checker and every agent task, waiting for
// all of them to drain before returning.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	tasks := make([]*agentTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.tasks = make(map[string]*agentTask)
	idleStop, idleDone := s.idleStop, s.idleDone
	s.running = false
	s.idleStop, s.idleDone = nil, nil
	s.mu.Unlock()

	if idleStop != nil {
		idleStop()
		<-idleDone
	}
	for _, task := range tasks {
		task.cancel()
		<-task.done
	}
	s.logger.Info("supervisor stopped")
}

// AgentStatus is one line of the status report.
type AgentStatus struct {
	AgentID   string
	Name      string
	Transport string
	Running   bool
}

// Status reports every known agent and whether its task is live.
func (s *Supervisor) Status() ([]AgentStatus, error) {
	agents, err := s.store.ListAgents()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AgentStatus, 0, len(agents))
	for _, a := range agents {
		_, running := s.tasks[a.ID]
		out = append(out, AgentStatus{
			AgentID:   a.ID,
			Name:      a.Name,
			Transport: a.Transport,
			Running:   running,
		})
	}
	return out, nil
}

// OutboundFor resolves a running agent's transport for the trigger
// scheduler.
func (s *Supervisor) OutboundFor(agent store.Agent) (transport.Outbound, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[agent.ID]
	if !ok {
		return nil, false
	}
	return task.transport, true
}

func (s *Supervisor) newTransport(agent store.Agent) (transport.Transport, error) {
	switch agent.Transport {
	case "slack":
		if !s.cfg.Slack.Enabled {
			return nil, fmt.Errorf("slack transport is disabled")
		}
		tr, err := transport.NewSlack(s.cfg.Slack.BotToken)
		if err != nil {
			return nil, err
		}
		channels, err := s.store.AgentChannels(agent.ID)
		if err != nil {
			return nil, err
		}
		for _, ch := range channels {
			tr.Watch(ch.ID)
		}
		return tr, nil
	case "signal", "":
		if !s.cfg.Signal.Enabled {
			return nil, fmt.Errorf("signal transport is disabled")
		}
		if agent.PhoneNumber == "" {
			return nil, fmt.Errorf("agent has no phone number")
		}
		return transport.NewSignal(s.cfg.Signal.BaseURL, agent.PhoneNumber, s.cfg.Signal.SendTimeout), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", agent.Transport)
	}
}

func (s *Supervisor) startTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

func (s *Supervisor) roll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(100) + 1
}

func (s *Supervisor) rollFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Supervisor) pick(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *Supervisor) responseDelay(reason trigger.Reason) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return trigger.ResponseDelay(reason, s.rng)
}
