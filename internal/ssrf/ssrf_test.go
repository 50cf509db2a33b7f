package ssrf

import "testing"

func TestIsPrivateHost(t *testing.T) {
	private := []string{
		"127.0.0.1",
		"127.255.255.255",
		"10.0.0.1",
		"10.255.0.1",
		"172.16.0.1",
		"172.31.255.1",
		"192.168.1.1",
		"169.254.169.254",
		"0.0.0.0",
		"::1",
		"[::1]",
		"fe80::1",
		"fc00::1",
		"fd12:3456::1",
		"::ffff:192.168.1.1",
	}
	for _, host := range private {
		if !IsPrivateHost(host) {
			t.Errorf("expected %q to be private", host)
		}
	}

	public := []string{
		"8.8.8.8",
		"1.1.1.1",
		"172.32.0.1",
		"172.15.0.1",
		"192.169.0.1",
		"2606:4700::1111",
		"example.com", // hostnames are not resolved
		"",
	}
	for _, host := range public {
		if IsPrivateHost(host) {
			t.Errorf("expected %q not to be private", host)
		}
	}
}

func TestIsLoopbackHost(t *testing.T) {
	for _, host := range []string{"localhost", "LOCALHOST", "localhost.", "[::1]", "0.0.0.0"} {
		if !IsLoopbackHost(host) {
			t.Errorf("expected %q to be loopback", host)
		}
	}
	if IsLoopbackHost("example.com") {
		t.Error("example.com is not loopback")
	}
}

func TestIsLiteralIP(t *testing.T) {
	if !IsLiteralIP("8.8.8.8") || !IsLiteralIP("[::1]") {
		t.Error("literal IPs not recognized")
	}
	if IsLiteralIP("example.com") {
		t.Error("hostname misdetected as IP")
	}
}
