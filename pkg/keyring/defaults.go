package keyring

// defaultModuli lists the published server keys; all use exponent 65537.
var defaultModuli = []struct {
	name    string
	modulus string
}{
	{
		name: "prod dc 1",
		modulus: "c150023e2f70db7985ded064759cfecf0af328e69a41daf4d6f01b538135a6f9" +
			"1f8f8b2a0ec9ba9720ce352efcf6c5680ffc424bd634864902de0b4bd6d49f4e" +
			"580230e3ae97d95c8b19442b3c0a10d8f5633fecedd6926a7f6dab0ddb7d457f" +
			"9ea81b8465fcd6fffeed114011df91c059caedaf97625f6c96ecc74725556934" +
			"ef781d866b34f011fce4d835a090196e9a5f0e4449af7eb697ddb9076494ca5f" +
			"81104a305b6dd27665722c46b60e5df680fb16b210607ef217652e60236c255f" +
			"6a28315f4083a96791d7214bf64c1df4fd0db1944fb26a2a57031b32eee64ad1" +
			"5a8ba68885cde74a5bfc920f6abf59ba5c75506373e7130f9042da922179251f",
	},
	{
		name: "prod dc 2",
		modulus: "aeec36c8ffc109cb099624685b97815415657bd76d8c9c3e398103d7ad16c9bb" +
			"a6f525ed0412d7ae2c2de2b44e77d72cbf4b7438709a4e646a05c43427c7f184" +
			"debf72947519680e651500890c6832796dd11f772c25ff8f576755afe055b0a3" +
			"752c696eb7d8da0d8be1faf38c9bdd97ce0a77d3916230c4032167100edd0f9e" +
			"7a3a9b602d04367b689536af0d64b613ccba7962939d3b57682beb6dae5b6081" +
			"30b2e52aca78ba023cf6ce806b1dc49c72cf928a7199d22e3d7ac84e47bc9427" +
			"d0236945d10dbd15177bab413fbf0edfda09f014c7a7da088dde9759702ca760" +
			"af2b8e4e97cc055c617bd74c3d97008635b98dc4d621b4891da9fb0473047927",
	},
	{
		name: "prod dc 3",
		modulus: "bdf2c77d81f6afd47bd30f29ac76e55adfe70e487e5e48297e5a9055c9c07d2b" +
			"93b4ed3994d3eca5098bf18d978d54f8b7c713eb10247607e69af9ef44f38e28" +
			"f8b439f257a11572945cc0406fe3f37bb92b79112db69eedf2dc71584a661638" +
			"ea5becb9e23585074b80d57d9f5710dd30d2da940e0ada2f1b878397dc1a72b5" +
			"ce2531b6f7dd158e09c828d03450ca0ff8a174deacebcaa22dde84ef66ad370f" +
			"259d18af806638012da0ca4a70baa83d9c158f3552bc9158e69bf332a45809e1" +
			"c36905a5caa12348dd57941a482131be7b2355a5f4635374f3bd3ddf5ff925bf" +
			"4809ee27c1e67d9120c5fe08a9de458b1b4a3c5d0a428437f2beca81f4e2d5ff",
	},
	{
		name: "prod dc 4",
		modulus: "b3f762b739be98f343eb1921cf0148cfa27ff7af02b6471213fed9daa0098976" +
			"e667750324f1abcea4c31e43b7d11f1579133f2b3d9fe27474e462058884e5e1" +
			"b123be9cbbc6a443b2925c08520e7325e6f1a6d50e117eb61ea49d2534c8bb4d" +
			"2ae4153fabe832b9edf4c5755fdd8b19940b81d1d96cf433d19e6a22968a85dc" +
			"80f0312f596bd2530c1cfb28b5fe019ac9bc25cd9c2a5d8a0f3a1c0c79bcca52" +
			"4d315b5e21b5c26b46babe3d75d06d1cd33329ec782a0f22891ed1db42a1d6c0" +
			"dea431428bc4d7aabdcf3e0eb6fda4e23eb7733e7727e9a1915580796c55188d" +
			"2596d2665ad1182ba7abf15aaa5a8b779ea996317a20ae044b820bff35b6e8a1",
	},
	{
		name: "prod dc 5",
		modulus: "be6a71558ee577ff03023cfa17aab4e6c86383cff8a7ad38edb9fafe6f323f2d" +
			"5106cbc8cafb83b869cffd1ccf121cd743d509e589e68765c96601e813dc5b9d" +
			"fc4be415c7a6526132d0035ca33d6d6075d4f535122a1cdfe017041f1088d141" +
			"9f65c8e5490ee613e16dbf662698c0f54870f0475fa893fc41eb55b08ff1ac21" +
			"1bc045ded31be27d12c96d8d3cfc6a7ae8aa50bf2ee0f30ed507cc2581e3dec5" +
			"6de94f5dc0a7abee0be990b893f2887bd2c6310a1e0a9e3e38bd34fded254150" +
			"8dc102a9c9b4c95effd9dd2dfe96c29be647d6c69d66ca500843cfaed6e44019" +
			"6f1dbe0e2e22163c61ca48c79116fa77216726749a976a1c4b0944b5121e8c01",
	},
	{
		name: "cdn dc 121",
		modulus: "e2d587706265125931bb129027016325aba59951e0771340df0808d84f176cd9" +
			"c0f3ccb9d57a205799bc04462e4d23f89655d9638652256e559455e79ac253fe" +
			"19a3c9e16aa936a3c805ba9dbf6fc195f6f7542fa83ff5642141cbb4cbbc2334" +
			"95b34812170b31fdf7655f007ad2c077eb912c5e901e8b32b39c34889ef1f946" +
			"c6c03c727de89cf042499ec29a5eb50ec11c9c31137e57fcc3c926b4118975bb" +
			"5101d4c0d7d7f8c857521011b2ef7411f8bec55354475628797339c1734fda97" +
			"fe0f1789b08f8872c9bea41bf215626efb3d35a00dc8295c044b7798eb9c1b5f" +
			"f8e8b8a591cfca7789e509ca219348c81cda7cb32994ccd5913d41a64ecdd23f",
	},
	{
		name: "cdn dc 201",
		modulus: "ba0e9f11355becd917618bb9b9e66e334a6ac3585ebaa52b64d628990374952d" +
			"28ee2ea6016c1bd7f162b1c14afb2e0b412484c7ea14cd70218e6965f5f99be1" +
			"eecf6d4897a3c32e5ced118f77b9e35e835df4e23981965e5151574690ceef1a" +
			"832d5ea4ac2414389d9e6cbb839ac9255d2ad7edde47e264d8e11cfc1ea53003" +
			"afddf054eb1844641c8df60a9ce9fbe4368d773d0f096195121adb732e5632ef" +
			"ab859af141851b0953e2cd436f9bb131f069f49f7d56256766e824e6e5bea6d1" +
			"59ee39dc2cecb1a496cb0197390996bd56c47bb17cab5922feced2f01c585ab8" +
			"522c9e9bb2ef556569c81c3f6f077e1017c20004f444f779a108e1c1a89c5205",
	},
	{
		name: "cdn dc 203",
		modulus: "bff2fab5dfa68fb0e5f353477eef977f528db6f64f475b52e7116a92252ca27d" +
			"6eec3dae94ad398ccf072afa55d68fb51cf3ea85a5e16acbec5fdd2edd320745" +
			"0d33b89289c4a022668dc62bba611e8ce3009f555056ceee32806b905313db57" +
			"800e59c090224166f753aca4c11ce4ddf1517b959a5bbc5f55489ea71c9619da" +
			"f579e7285827c169fd530977dc4bbbdcca58cd4f4de9c2dd98c92e625c4e4807" +
			"9c01079caa4929b8198b56591ebb52322c5c177bed34697e82c6a5f39d507c41" +
			"cf86528fc0fbea6d73969203e49da917a6c7e3e642cf4494a6fde3edb13c5859" +
			"6f80c7f010f870c4c62275119acaaf5894b9587780fe628ab453a8d2dcc59345",
	},
}
