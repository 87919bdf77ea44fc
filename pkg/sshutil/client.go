package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/drbdmon/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Client is an SSH connection to a storage node.
type Client struct {
	*ssh.Client
	Host    string // Alias or address the caller asked for
	Address string // Resolved host:port
}

// Options tune Dial.
type Options struct {
	Timeout time.Duration
	// StrictHostKeyChecking verifies the server key against
	// ~/.ssh/known_hosts. Disabling it accepts any key.
	StrictHostKeyChecking bool
	// Warn receives non-fatal config problems. Defaults to log.Printf.
	Warn func(message string)
}

// DefaultOptions returns Options with host key checking enabled.
func DefaultOptions() Options {
	return Options{
		Timeout:               10 * time.Second,
		StrictHostKeyChecking: true,
	}
}

var matchWarningOnce sync.Once

// Dial connects to host, which may be an ssh_config alias, a hostname,
// user@hostname or hostname:port. Settings from ~/.ssh/config apply to
// aliases.
func Dial(host string, opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.Warn == nil {
		opts.Warn = func(message string) { log.Printf("Warning: %s", message) }
	}

	settings := resolveSettings(host, filepath.Join(homeDir(), ".ssh", "config"), opts.Warn)
	cfg, err := clientConfig(settings, opts)
	if err != nil {
		var monErr *errors.Error
		if stderrors.As(err, &monErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", host),
			"Check your keys are loaded: ssh-add -l")
	}

	address := settings.address()
	conn, err := net.DialTimeout("tcp", address, opts.Timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			dialSuggestion(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, cfg)
	if err != nil {
		conn.Close()
		var mismatch *HostKeyMismatchError
		if stderrors.As(err, &mismatch) {
			return nil, errors.New(errors.ErrSSH, mismatch.Error(), mismatch.Suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			handshakeSuggestion(err, settings.encryptedKeys))
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    host,
		Address: address,
	}, nil
}

// Close closes the connection and every session on it.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

type settings struct {
	hostname      string
	port          string
	user          string
	identityFile  string
	encryptedKeys []string
}

func (s *settings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSettings splits user@host:port and fills in what ssh_config at
// configPath says about the alias. Explicit user and port win.
func resolveSettings(host, configPath string, warn func(string)) *settings {
	s := &settings{port: "22", user: currentUser()}
	explicitUser, explicitPort := false, false

	if at := strings.Index(host, "@"); at != -1 {
		s.user = host[:at]
		host = host[at+1:]
		explicitUser = true
	}
	if !explicitUser {
		if u := os.Getenv("DRBDMON_TEST_SSH_USER"); u != "" {
			s.user = u
		}
	}
	if colon := strings.LastIndex(host, ":"); colon != -1 && isPort(host[colon+1:]) {
		s.port = host[colon+1:]
		host = host[:colon]
		explicitPort = true
	}
	s.hostname = host

	content, matchLine, err := readConfig(configPath)
	if err != nil {
		return s
	}
	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return s
	}

	found := false
	if v, _ := cfg.Get(host, "HostName"); v != "" {
		s.hostname = v
		found = true
	}
	if v, _ := cfg.Get(host, "Port"); v != "" {
		if !explicitPort {
			s.port = v
		}
		found = true
	}
	if v, _ := cfg.Get(host, "User"); v != "" {
		if !explicitUser {
			s.user = v
		}
		found = true
	}
	if v, _ := cfg.Get(host, "IdentityFile"); v != "" {
		s.identityFile = expandPath(v)
		found = true
	}

	if matchLine > 0 && !found {
		matchWarningOnce.Do(func() {
			warn(fmt.Sprintf(
				"Host '%s' not found in SSH config before the Match block at line %d. "+
					"Entries after a Match block are not read.", host, matchLine))
		})
	}
	return s
}

func isPort(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// DefaultKeyFiles lists the private keys tried when ssh_config names none.
func DefaultKeyFiles() []string {
	dir := filepath.Join(homeDir(), ".ssh")
	return []string{
		filepath.Join(dir, "id_ed25519"),
		filepath.Join(dir, "id_rsa"),
		filepath.Join(dir, "id_ecdsa"),
	}
}

// clientConfig collects auth methods (agent first, then key files) and the
// host key policy.
func clientConfig(s *settings, opts Options) (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod

	tryKey := func(path string) {
		auth, err := keyFileAuth(path)
		if err != nil {
			var enc *EncryptedKeyError
			if stderrors.As(err, &enc) {
				s.encryptedKeys = append(s.encryptedKeys, path)
			}
			return
		}
		methods = append(methods, auth)
	}

	if auth := agentAuth(); auth != nil {
		methods = append(methods, auth)
	}
	if key := os.Getenv("DRBDMON_TEST_SSH_KEY"); key != "" {
		tryKey(key)
	}
	if s.identityFile != "" {
		tryKey(s.identityFile)
	}
	for _, path := range DefaultKeyFiles() {
		if path != s.identityFile {
			tryKey(path)
		}
	}

	if len(methods) == 0 {
		if len(s.encryptedKeys) > 0 {
			return nil, errors.New(errors.ErrSSH,
				fmt.Sprintf("Found SSH key(s) but they're encrypted: %s", strings.Join(s.encryptedKeys, ", ")),
				addKeysHint(s.encryptedKeys))
		}
		return nil, errors.New(errors.ErrSSH, "No SSH auth methods available",
			"Check your keys are loaded: ssh-add -l")
	}

	hostKeys := ssh.InsecureIgnoreHostKey() //nolint:gosec // only when the operator turned checking off
	if opts.StrictHostKeyChecking {
		var err error
		hostKeys, err = knownHostsCallback(filepath.Join(homeDir(), ".ssh", "known_hosts"))
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{
		User:            s.user,
		Auth:            methods,
		HostKeyCallback: hostKeys,
		Timeout:         opts.Timeout,
	}, nil
}

var (
	agentOnce   sync.Once
	agentConn   net.Conn
	agentClient agent.ExtendedAgent
)

// agentAuth returns nil when no agent is running or it holds no keys.
func agentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}
	agentOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentConn = conn
		agentClient = agent.NewClient(conn)
	})
	if agentClient == nil {
		return nil
	}
	if signers, err := agentClient.Signers(); err != nil || len(signers) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(agentClient.Signers)
}

// AgentKeys reports how many keys the SSH agent holds. It fails when no
// agent is running.
func AgentKeys() (int, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return 0, errors.New(errors.ErrSSH, "SSH agent not running", "Start one: eval $(ssh-agent) && ssh-add")
	}
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrSSH, "SSH agent socket not accessible", "Start one: eval $(ssh-agent) && ssh-add")
	}
	defer conn.Close()
	keys, err := agent.NewClient(conn).List()
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrSSH, "Cannot query the SSH agent", "Check it with: ssh-add -l")
	}
	return len(keys), nil
}

// CloseAgent releases the shared agent connection.
func CloseAgent() {
	if agentConn != nil {
		agentConn.Close()
	}
}

func keyFileAuth(path string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) || bytes.Contains(key, []byte("ENCRYPTED")) {
			return nil, &EncryptedKeyError{Path: path}
		}
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func addKeysHint(keys []string) string {
	var b strings.Builder
	b.WriteString("Add your key(s) to the agent:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "  ssh-add %s\n", k)
	}
	return strings.TrimRight(b.String(), "\n")
}

func dialSuggestion(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Is sshd running on that node? Try: ssh <host>"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "Can't route to the host. Check your network connection."
	case strings.Contains(msg, "timeout"):
		return "Connection timed out. The node might be down or firewalled."
	}
	return "Make sure the host is reachable: ping <host>"
}

func handshakeSuggestion(err error, encrypted []string) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"), strings.Contains(msg, "no supported methods"):
		if len(encrypted) > 0 {
			return addKeysHint(encrypted)
		}
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	case strings.Contains(msg, "host key"):
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}

// EncryptedKeyError means a key file needs a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// HostKeyMismatchError is returned when known_hosts has a different key for
// the node.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion explains how to refresh known_hosts.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	known := make([]string, 0, len(e.Want))
	for _, k := range e.Want {
		known = append(known, k.Key.Type())
	}
	if len(known) == 0 {
		known = append(known, "unknown")
	}
	return fmt.Sprintf(
		"known_hosts has %s for this node but it sent %s.\n"+
			"  If the node was reinstalled, remove the old entry:\n"+
			"    ssh-keygen -R %s -f %s",
		strings.Join(known, ", "), e.ReceivedType, host, e.KnownHosts)
}

// readConfig returns the ssh_config content before the first Match block,
// which ssh_config cannot parse, and the line of that block (0 if none).
func readConfig(path string) ([]byte, int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			return []byte(strings.Join(lines[:i], "\n")), i + 1, nil
		}
	}
	return content, 0, nil
}

func knownHostsCallback(path string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, err
	}
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if err != nil && stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   path,
				Want:         keyErr.Want,
			}
		}
		return err
	}, nil
}
