package verifier

var SCRYPT_VERIFIER_VERSION = "0.1.0"
