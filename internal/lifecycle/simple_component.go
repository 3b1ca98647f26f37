package lifecycle

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/samson-media/barn/internal/errutils"
	"github.com/samson-media/barn/internal/l3"
)

var logger = l3.Get("lifecycle")

// SimpleComponent implements Component over a pair of start/stop funcs.
// There is no dependency graph between components: barn only ever
// registers a single top-level component (barn.Service) with its
// ComponentManager, so ordering between sibling components is never needed.
type SimpleComponent struct {
	stateChangeFuncs []func(prevState, newState ComponentState)
	mutex            sync.RWMutex

	// CompId is the component's unique identifier.
	CompId string
	// AfterStart runs after StartFunc, with its returned error.
	AfterStart func(err error)
	// BeforeStart runs before StartFunc.
	BeforeStart func()
	// AfterStop runs after StopFunc, with its returned error.
	AfterStop func(err error)
	// BeforeStop runs before StopFunc.
	BeforeStop func()
	// CompState is the component's current state.
	CompState ComponentState
	// StartFunc starts the component.
	StartFunc func() error
	// StopFunc stops the component.
	StopFunc func() error
}

func (sc *SimpleComponent) handleStateChange(prevState, newState ComponentState) {
	for _, f := range sc.stateChangeFuncs {
		f(prevState, newState)
	}
	if newState == Starting && sc.BeforeStart != nil {
		sc.BeforeStart()
	} else if newState == Stopping && sc.BeforeStop != nil {
		sc.BeforeStop()
	}
}

// Id returns the component's identifier.
func (sc *SimpleComponent) Id() string {
	return sc.CompId
}

// OnChange registers f to run on every state transition.
func (sc *SimpleComponent) OnChange(f func(prevState, newState ComponentState)) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	sc.stateChangeFuncs = append(sc.stateChangeFuncs, f)
}

// Start runs StartFunc, tracking state around it.
func (sc *SimpleComponent) Start() (err error) {
	if sc.StartFunc == nil {
		return nil
	}
	sc.handleStateChange(sc.CompState, Starting)
	sc.CompState = Starting
	err = sc.StartFunc()
	if err != nil {
		sc.CompState = Error
	} else {
		sc.CompState = Running
	}
	sc.handleStateChange(Starting, sc.CompState)
	if sc.AfterStart != nil {
		sc.AfterStart(err)
	}
	return
}

// Stop runs StopFunc, tracking state around it.
func (sc *SimpleComponent) Stop() (err error) {
	if sc.StopFunc == nil {
		return nil
	}
	sc.handleStateChange(sc.CompState, Stopping)
	sc.CompState = Stopping
	err = sc.StopFunc()
	if err != nil {
		sc.CompState = Error
	} else {
		sc.CompState = Stopped
	}
	sc.handleStateChange(Stopping, sc.CompState)
	if sc.AfterStop != nil {
		sc.AfterStop(err)
	}
	return
}

// State returns the component's current state.
func (sc *SimpleComponent) State() ComponentState {
	return sc.CompState
}

// SimpleComponentManager manages a registry of Components, stopping them
// all on SIGINT/SIGTERM.
type SimpleComponentManager struct {
	components   map[string]Component
	componentIds []string
	cMutex       sync.RWMutex
	waitChan     chan struct{}
	waitOnce     sync.Once
}

// GetState returns the state of the component with the given id.
func (scm *SimpleComponentManager) GetState(id string) ComponentState {
	scm.cMutex.RLock()
	defer scm.cMutex.RUnlock()
	if c, exists := scm.components[id]; exists {
		return c.State()
	}
	return Unknown
}

// List returns every registered Component in registration order.
func (scm *SimpleComponentManager) List() []Component {
	scm.cMutex.RLock()
	defer scm.cMutex.RUnlock()
	components := make([]Component, 0, len(scm.components))
	for _, id := range scm.componentIds {
		components = append(components, scm.components[id])
	}
	return components
}

// Register registers component, returning any previous registrant under the
// same id.
func (scm *SimpleComponentManager) Register(component Component) Component {
	scm.cMutex.Lock()
	defer scm.cMutex.Unlock()
	old, exists := scm.components[component.Id()]
	if !exists {
		scm.components[component.Id()] = component
		scm.componentIds = append(scm.componentIds, component.Id())
	}
	return old
}

// Start starts the component with the given id.
func (scm *SimpleComponentManager) Start(id string) error {
	scm.cMutex.Lock()
	component, exists := scm.components[id]
	scm.cMutex.Unlock()
	if !exists {
		return ErrCompNotFound
	}
	if component.State() == Running {
		return ErrCompAlreadyStarted
	}
	logger.DebugF("starting component %s", id)
	err := component.Start()
	if err != nil {
		logger.ErrorF("error starting component %s: %v", id, err)
	} else {
		logger.DebugF("started component %s", id)
	}
	return err
}

// StartAll starts every registered component.
func (scm *SimpleComponentManager) StartAll() error {
	err := errutils.NewMultiErr(nil)
	scm.cMutex.RLock()
	ids := append([]string(nil), scm.componentIds...)
	scm.cMutex.RUnlock()
	for _, id := range ids {
		if e := scm.Start(id); e != nil {
			err.Add(e)
		}
	}
	if err.HasErrors() {
		return err
	}
	return nil
}

// StartAndWait starts every component and blocks until StopAll runs.
func (scm *SimpleComponentManager) StartAndWait() {
	_ = scm.StartAll()
	scm.Wait()
}

// Stop stops the component with the given id.
func (scm *SimpleComponentManager) Stop(id string) error {
	scm.cMutex.Lock()
	component, exists := scm.components[id]
	scm.cMutex.Unlock()
	if !exists {
		return ErrCompNotFound
	}
	if component.State() == Stopped {
		return ErrCompAlreadyStopped
	}
	logger.DebugF("stopping component %s", id)
	err := component.Stop()
	if err != nil {
		logger.ErrorF("error stopping component %s: %v", id, err)
	} else {
		logger.InfoF("stopped component %s", id)
	}
	return err
}

// StopAll stops every registered component in reverse registration order.
func (scm *SimpleComponentManager) StopAll() error {
	logger.Info("stopping all components")
	err := errutils.NewMultiErr(nil)
	scm.cMutex.RLock()
	ids := append([]string(nil), scm.componentIds...)
	scm.cMutex.RUnlock()
	for i := len(ids) - 1; i >= 0; i-- {
		if e := scm.Stop(ids[i]); e != nil {
			err.Add(e)
		}
	}
	scm.waitOnce.Do(func() { close(scm.waitChan) })
	if err.HasErrors() {
		return err
	}
	return nil
}

// Unregister removes a component, stopping it first if running.
func (scm *SimpleComponentManager) Unregister(id string) {
	scm.cMutex.Lock()
	defer scm.cMutex.Unlock()
	component, exists := scm.components[id]
	if !exists {
		return
	}
	if component.State() == Running {
		_ = component.Stop()
	}
	delete(scm.components, id)
	for i, compId := range scm.componentIds {
		if compId == id {
			scm.componentIds = append(scm.componentIds[:i], scm.componentIds[i+1:]...)
			break
		}
	}
}

// Wait blocks until StopAll has been called.
func (scm *SimpleComponentManager) Wait() {
	<-scm.waitChan
}

// NewSimpleComponentManager returns a ComponentManager that stops every
// registered component on SIGINT/SIGTERM.
func NewSimpleComponentManager() ComponentManager {
	manager := &SimpleComponentManager{
		components: make(map[string]Component),
		waitChan:   make(chan struct{}),
	}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.ErrorF("received signal %v, stopping all components", sig)
		if err := manager.StopAll(); err != nil {
			logger.ErrorF("error stopping components: %v", err)
		}
	}()
	return manager
}
