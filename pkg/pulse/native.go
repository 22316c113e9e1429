package pulse

import (
	"fmt"
	"net"

	"github.com/jfreymuth/pulse/proto"
)

const appName = "goptt"

// nativeConn speaks the PulseAudio native protocol over the server's
// unix socket.
type nativeConn struct {
	client *proto.Client
	conn   net.Conn
}

// Dial connects to the audio server (empty string = default server)
// and completes the client-name handshake. Returns ErrInit on any
// failure before the connection is ready.
func Dial(server string) (Conn, error) {
	client, conn, err := proto.Connect(server)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrInit, err)
	}

	props := proto.PropList{
		"application.name": proto.PropListString(appName),
	}
	err = client.Request(&proto.SetClientName{Props: props}, &proto.SetClientNameReply{})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: handshake: %v", ErrInit, err)
	}

	return &nativeConn{client: client, conn: conn}, nil
}

func (c *nativeConn) LoadModule(name, args string) (uint32, error) {
	var reply proto.LoadModuleReply
	err := c.client.Request(&proto.LoadModule{Name: name, Args: args}, &reply)
	if err != nil {
		return 0, err
	}
	return reply.ModuleIndex, nil
}

func (c *nativeConn) UnloadModule(index uint32) error {
	return c.client.Request(&proto.UnloadModule{ModuleIndex: index}, nil)
}

func (c *nativeConn) Modules() ([]Module, error) {
	var reply proto.GetModuleInfoListReply
	if err := c.client.Request(&proto.GetModuleInfoList{}, &reply); err != nil {
		return nil, err
	}
	modules := make([]Module, 0, len(reply))
	for _, m := range reply {
		modules = append(modules, Module{
			Index: m.ModuleIndex,
			Name:  m.ModuleName,
			Args:  m.ModuleArgs,
		})
	}
	return modules, nil
}

func (c *nativeConn) Sources() ([]string, error) {
	var reply proto.GetSourceInfoListReply
	if err := c.client.Request(&proto.GetSourceInfoList{}, &reply); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(reply))
	for _, s := range reply {
		names = append(names, s.SourceName)
	}
	return names, nil
}

func (c *nativeConn) SetSourceMute(name string, mute bool) error {
	return c.client.Request(&proto.SetSourceMute{
		SourceIndex: proto.Undefined,
		SourceName:  name,
		Mute:        mute,
	}, nil)
}

func (c *nativeConn) Close() error {
	return c.conn.Close()
}
