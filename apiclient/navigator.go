package apiclient

import "sync"

// PathNavigator is a Navigator that only tracks the current location. OnRedirect, when
// set, is called after the location moves to the login path.
type PathNavigator struct {
	mu         sync.RWMutex
	loginPath  string
	path       string
	OnRedirect func()
}

func NewPathNavigator(loginPath, current string) *PathNavigator {
	return &PathNavigator{loginPath: loginPath, path: current}
}

func (n *PathNavigator) CurrentPath() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.path
}

func (n *PathNavigator) SetPath(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.path = path
}

func (n *PathNavigator) RedirectToLogin() {
	n.mu.Lock()
	n.path = n.loginPath
	hook := n.OnRedirect
	n.mu.Unlock()

	if hook != nil {
		hook()
	}
}
