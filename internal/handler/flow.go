package handler

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/averraz/troubadour/internal/generator"
	"github.com/averraz/troubadour/internal/util"
)

// ErrEndFlow is returned by a node handler to finish the flow early,
// before the node graph runs out.
var ErrEndFlow = errors.New("end flow")

func InstanceIDFromInteraction(i *discordgo.InteractionCreate) string {
	var customID string

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		customID = i.MessageComponentData().CustomID
	case discordgo.InteractionModalSubmit:
		customID = i.ModalSubmitData().CustomID
	default:
		return ""
	}

	return InstanceIDFromCustomID(customID)
}

func InstanceIDFromCustomID(customID string) string {
	parts := strings.SplitN(customID, ":", 2)
	if len(parts) != 2 {
		return ""
	}

	return parts[1]
}

type FlowContext struct {
	InstanceID string
	State      map[string]any
}

type Node struct {
	ID      string
	Matcher func(*discordgo.InteractionCreate) bool
	Handler func(DiscordSession, *discordgo.InteractionCreate, *FlowContext) error
	Next    []*Node
}

type Flow struct {
	ID   string
	Root *Node
}

type flowSession struct {
	flow *Flow
	node *Node
	ctx  *FlowContext
}

// FlowManager routes interactions through multi-step component flows.
// Each started flow gets an instance ID that component custom IDs carry
// in their "name:instanceID" suffix, which is how follow-up interactions
// find their way back to the right flow.
type FlowManager struct {
	flowsMu *sync.RWMutex
	flows   map[string]*Flow

	sessionsMu *sync.RWMutex
	sessions   map[string]*flowSession

	idGenerator generator.Generator[string]
}

func NewFlowManager(idGenerator generator.Generator[string]) *FlowManager {
	if idGenerator == nil {
		idGenerator = &generator.UUIDV4Generator{}
	}
	return &FlowManager{
		flowsMu:     &sync.RWMutex{},
		flows:       make(map[string]*Flow),
		sessionsMu:  &sync.RWMutex{},
		sessions:    make(map[string]*flowSession),
		idGenerator: idGenerator,
	}
}

func (fm *FlowManager) RegisterFlow(flow *Flow) {
	fm.flowsMu.Lock()
	defer fm.flowsMu.Unlock()

	if _, exists := fm.flows[flow.ID]; exists {
		panic("flow already registered")
	}
	fm.flows[flow.ID] = flow
}

// Router dispatches the interaction to an in-progress flow, or starts a
// new one whose root matches. It reports whether any flow claimed the
// interaction so the caller knows to stop routing.
func (fm *FlowManager) Router(s DiscordSession, i *discordgo.InteractionCreate) (bool, error) {
	instanceID := InstanceIDFromInteraction(i)
	if instanceID != "" {
		fm.sessionsMu.RLock()
		sess, inFlow := fm.sessions[instanceID]
		fm.sessionsMu.RUnlock()
		if inFlow {
			return true, fm.advance(s, i, sess)
		}
	}

	return fm.initializeFlow(s, i)
}

func (fm *FlowManager) finishFlow(sess *flowSession) {
	fm.sessionsMu.Lock()
	delete(fm.sessions, sess.ctx.InstanceID)
	fm.sessionsMu.Unlock()
}

func (fm *FlowManager) advance(
	s DiscordSession,
	i *discordgo.InteractionCreate,
	sess *flowSession,
) error {
	if len(sess.node.Next) == 0 {
		fm.finishFlow(sess)
		return nil
	}

	nextNode, ok := util.FindFirst(sess.node.Next, func(n *Node) bool { return n.Matcher(i) })
	if !ok {
		return nil
	}

	sess.node = nextNode
	if err := runHandler(s, i, sess); err != nil {
		if errors.Is(err, ErrEndFlow) {
			fm.finishFlow(sess)
			return nil
		}
		return err
	}

	if len(nextNode.Next) == 0 {
		fm.finishFlow(sess)
	}
	return nil
}

func (fm *FlowManager) initializeFlow(s DiscordSession, i *discordgo.InteractionCreate) (bool, error) {
	// Find the first matching flow
	var f *Flow
	for _, flow := range fm.flows {
		if flow.Root.Matcher(i) {
			f = flow
			break
		}
	}
	if f == nil {
		return false, nil
	}

	instanceID, err := fm.idGenerator.Next()
	if err != nil {
		return true, fmt.Errorf("failed to generate instance ID: %w", err)
	}

	ctx := &FlowContext{
		InstanceID: instanceID,
		State:      make(map[string]any),
	}
	newSess := &flowSession{flow: f, node: f.Root, ctx: ctx}

	fm.sessionsMu.Lock()
	fm.sessions[instanceID] = newSess
	fm.sessionsMu.Unlock()

	if err := runHandler(s, i, newSess); err != nil {
		if errors.Is(err, ErrEndFlow) {
			fm.finishFlow(newSess)
			return true, nil
		}
		return true, err
	}
	return true, nil
}

func runHandler(s DiscordSession, i *discordgo.InteractionCreate, sess *flowSession) error {
	return sess.node.Handler(s, i, sess.ctx)
}
