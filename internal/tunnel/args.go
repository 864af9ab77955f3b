package tunnel

import "strconv"

// Args returns the argument vector that runs bin as a tunnel client serving
// SOCKS5 on cfg.LocalSOCKSPort. The first element is bin.
func Args(bin string, cfg *Config) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	args := []string{
		bin,
		"-type", "client",
		"-l", ":" + strconv.Itoa(cfg.LocalSOCKSPort),
		"-s", cfg.ServerAddress(),
		"-sock5", "1",
	}

	if cfg.EncryptMode != "" {
		args = append(args, "-encrypt", cfg.EncryptMode, "-encrypt-key", cfg.EncryptKey)
	} else {
		args = append(args, "-key", strconv.Itoa(*cfg.Key))
	}

	return args, nil
}
