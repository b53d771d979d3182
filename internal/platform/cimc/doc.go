// Package cimc drives the Cisco Integrated Management Controller of a
// UCS C-series server over SSH.
//
// The management channel is brought up in two explicit steps, Connect
// for the TCP dial and Authenticate for the SSH handshake, so failures
// surface as what they are: an unreachable controller or rejected
// credentials. A connected client multiplexes two PTY shells over the
// one SSH connection. The control shell stays at the CIMC CLI for
// Serial over LAN setup and chassis power control; the console shell
// runs "connect host" and from then on carries the host's serial
// console.
//
// Host key verification is disabled: CIMCs live on isolated management
// networks and present self-signed identities that change with every
// factory reset.
package cimc
