package toolrunner

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// sealEnv 加密一个服务器的凭据环境变量后落盘。密钥由配置里的
// secret_key 经 SHA-256 派生, 随机 nonce 放在密文前 24 字节。
func sealEnv(secretKey string, env map[string]string) ([]byte, error) {
	plain, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}

	key := deriveKey(secretKey)
	out := secretbox.Seal(nonce[:], plain, &nonce, &key)
	return out, nil
}

func openEnv(secretKey string, sealed []byte) (map[string]string, error) {
	if len(sealed) < 24 {
		return nil, fmt.Errorf("密文太短")
	}

	var nonce [24]byte
	copy(nonce[:], sealed[:24])

	key := deriveKey(secretKey)
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &key)
	if !ok {
		return nil, fmt.Errorf("凭据解密失败: 密钥不匹配或文件损坏")
	}

	var env map[string]string
	if err := json.Unmarshal(plain, &env); err != nil {
		return nil, err
	}
	return env, nil
}

func deriveKey(secretKey string) [32]byte {
	return sha256.Sum256([]byte(secretKey))
}
