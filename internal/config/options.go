package config

import (
	"encoding/json"

	goFlags "github.com/jessevdk/go-flags"
)

// Options represents command-line arguments.
type Options struct {
	// TCP makes the tool establish a stream connection instead of a datagram
	// one.
	TCP bool `short:"t" long:"tcp" description:"Use TCP instead of UDP." optional:"yes" optional-value:"true"`

	// Listen switches the tool to the passive mode: the only positional
	// argument is the service and the socket is bound to a wildcard address.
	Listen bool `short:"l" long:"listen" description:"Bind to a wildcard address and wait for incoming data instead of connecting." optional:"yes" optional-value:"true"`

	// IPv4 forces usage of IPv4 addresses only.
	IPv4 bool `short:"4" long:"ipv4" description:"Resolve names to IPv4 addresses only." optional:"yes" optional-value:"true"`

	// IPv6 forces usage of IPv6 addresses only.
	IPv6 bool `short:"6" long:"ipv6" description:"Resolve names to IPv6 addresses only." optional:"yes" optional-value:"true"`

	// Numeric disables name lookups, the host must be an IP address.
	Numeric bool `short:"n" long:"numeric" description:"Numeric host only, do not use DNS." optional:"yes" optional-value:"true"`

	// Resolve allows to provide a custom address for a specific host and port
	// pair. Supports '*' instead of the host name to cover all hosts.
	Resolve []string `long:"resolve" description:"Provide a custom address for a specific host. port is ignored. '*' can be used instead of the host name. Can be specified multiple times." value-name:"<host:port:addr[,addr]...>"`

	// DNSServers is a comma-separated list of DNS servers to use instead of
	// the system ones.
	DNSServers string `long:"dns-servers" description:"DNS servers to use for resolving hostnames. Comma-separated list of upstream addresses." value-name:"<addr[,addr]...>"`

	// ConnectTo allows to override the connection target, i.e. for a request
	// to the given HOST1:PORT1 pair, connect to HOST2:PORT2 instead.
	ConnectTo []string `long:"connect-to" description:"For a connection to the given HOST1:PORT1 pair, connect to HOST2:PORT2 instead. Can be specified multiple times." value-name:"<HOST1:PORT1:HOST2:PORT2>"`

	// ProxyURL is a URL of a proxy to use with this connection.
	ProxyURL string `short:"x" long:"proxy" description:"Use the specified SOCKS5 or HTTP(S) proxy." value-name:"<scheme://[username:password@]host[:port]>"`

	// Async makes the tool use the asynchronous connection procedure.
	Async bool `long:"async" description:"Establish the connection asynchronously." optional:"yes" optional-value:"true"`

	// Data specifies the data to be sent once the connection is established.
	Data string `short:"d" long:"data" description:"Sends the specified data once connected and waits for a reply." value-name:"<data>"`

	// MaxTime is the time in seconds to wait for incoming data.
	MaxTime int `long:"max-time" description:"Time in seconds to wait for a reply or for incoming data. 5 seconds by default." value-name:"<seconds>"`

	// OutputJSON enables writing output in JSON format.
	OutputJSON bool `long:"json-output" description:"Makes the tool write machine-readable output in JSON format." optional:"yes" optional-value:"true"`

	// OutputPath defines where to write the received data. If not set, the
	// tool will write everything to stdout.
	OutputPath string `short:"o" long:"output" description:"Defines where to write the received data. If not set, it is written to stdout." value-name:"<file>"`

	// Verbose defines whether we should write the DEBUG-level log or not.
	Verbose bool `short:"v" long:"verbose" description:"Verbose output (optional)." optional:"yes" optional-value:"true"`
}

// String implements fmt.Stringer interface for Options.
func (o *Options) String() (s string) {
	b, _ := json.MarshalIndent(o, "", "    ")

	return string(b)
}

// parseOptions parses args and creates the Options struct.  Returns the
// positional arguments as well.
func parseOptions(args []string) (o *Options, positional []string, err error) {
	opts := &Options{}
	parser := goFlags.NewParser(opts, goFlags.Default)
	parser.Usage = "[OPTIONS] <host> <service>\n  goconnect --listen [OPTIONS] <service>"

	positional, err = parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	return opts, positional, nil
}
