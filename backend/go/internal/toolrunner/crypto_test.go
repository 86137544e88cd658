package toolrunner

import (
	"bytes"
	"testing"
)

func TestSealOpenEnv_RoundTrip(t *testing.T) {
	env := map[string]string{
		"API_KEY":  "sk-secret-value",
		"ENDPOINT": "https://api.example.com",
	}

	sealed, err := sealEnv("runner-secret", env)
	if err != nil {
		t.Fatalf("sealEnv() error = %v", err)
	}

	got, err := openEnv("runner-secret", sealed)
	if err != nil {
		t.Fatalf("openEnv() error = %v", err)
	}
	if len(got) != 2 || got["API_KEY"] != "sk-secret-value" {
		t.Errorf("Round trip mangled the env: %v", got)
	}
}

func TestSealEnv_CiphertextHidesPlaintext(t *testing.T) {
	sealed, err := sealEnv("runner-secret", map[string]string{"API_KEY": "sk-secret-value"})
	if err != nil {
		t.Fatalf("sealEnv() error = %v", err)
	}
	if bytes.Contains(sealed, []byte("sk-secret-value")) {
		t.Error("Expected the plaintext secret to be absent from the ciphertext")
	}
}

func TestOpenEnv_WrongKey(t *testing.T) {
	sealed, err := sealEnv("right-key", map[string]string{"A": "b"})
	if err != nil {
		t.Fatalf("sealEnv() error = %v", err)
	}
	if _, err := openEnv("wrong-key", sealed); err == nil {
		t.Error("Expected decryption with the wrong key to fail")
	}
}

func TestOpenEnv_Truncated(t *testing.T) {
	if _, err := openEnv("key", []byte("short")); err == nil {
		t.Error("Expected a truncated ciphertext to fail")
	}
}
